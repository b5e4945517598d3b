package stlog

import (
	"context"
	"maps"
)

type contextPropertiesKey struct{}

// PushProperty returns a context carrying the property in addition to any
// pushed earlier. Events emitted with the context receive it unless the
// template or ForContext already set the same name.
//
//	ctx = stlog.PushProperty(ctx, "RequestId", id)
//	logger.WithContext(ctx).Information("Handling {Path}", path)
func PushProperty(ctx context.Context, name string, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	existing := contextProperties(ctx)
	properties := make(map[string]any, len(existing)+1)
	maps.Copy(properties, existing)
	properties[name] = value

	return context.WithValue(ctx, contextPropertiesKey{}, properties)
}

// contextProperties returns the pushed properties. The map must not be modified.
func contextProperties(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}
	properties, _ := ctx.Value(contextPropertiesKey{}).(map[string]any)
	return properties
}
