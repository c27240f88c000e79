package llm

import "context"

type callTagKey struct{}

// CallTag labels the model calls made under a context so logs can be tied back
// to the analyzer and attempt that caused them.
type CallTag struct {
	Purpose   string
	AttemptID string
}

func WithCallTag(ctx context.Context, tag CallTag) context.Context {
	return context.WithValue(ctx, callTagKey{}, tag)
}

func CallTagFrom(ctx context.Context) CallTag {
	tag, _ := ctx.Value(callTagKey{}).(CallTag)
	if tag.Purpose == "" {
		tag.Purpose = "unknown"
	}
	return tag
}
