package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys
const (
	AttrHostName    = "lazyhost.host"
	AttrRunID       = "lazyhost.run_id"
	AttrMember      = "lazyhost.member"
	AttrKind        = "lazyhost.kind"
	AttrWarm        = "lazyhost.warm"
	AttrCleanup     = "lazyhost.cleanup"
	AttrCount       = "lazyhost.count"
	AttrBucket      = "s3.bucket"
	AttrRegion      = "s3.region"
	AttrDBDriver    = "db.driver"
	AttrHTTPAddress = "http.address"
)

func HostName(name string) attribute.KeyValue {
	return attribute.String(AttrHostName, name)
}

func RunID(id string) attribute.KeyValue {
	return attribute.String(AttrRunID, id)
}

func Member(name string) attribute.KeyValue {
	return attribute.String(AttrMember, name)
}

func Kind(kind string) attribute.KeyValue {
	return attribute.String(AttrKind, kind)
}

func Warm(warm bool) attribute.KeyValue {
	return attribute.Bool(AttrWarm, warm)
}

func Cleanup(name string) attribute.KeyValue {
	return attribute.String(AttrCleanup, name)
}

func Count(n int) attribute.KeyValue {
	return attribute.Int(AttrCount, n)
}

func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

func DBDriver(driver string) attribute.KeyValue {
	return attribute.String(AttrDBDriver, driver)
}

func HTTPAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrHTTPAddress, addr)
}

// StartMemberSpan starts a span around the first read of a member.
func StartMemberSpan(ctx context.Context, member, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Member(member), Kind(kind)}, attrs...)
	return Tracer().Start(ctx, "member.init", trace.WithAttributes(all...))
}

// StartDrainSpan starts a span covering a whole cleanup drain.
func StartDrainSpan(ctx context.Context, registered int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Count(registered)}, attrs...)
	return Tracer().Start(ctx, "lazyhost.drain", trace.WithAttributes(all...))
}
