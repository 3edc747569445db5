package types

import "errors"

// Failure kinds shared by every stage. Stages wrap these with detail via %w
// and callers match them with errors.Is.
var (
	ErrMissingKey        = errors.New("missing api key")
	ErrProviderFailed    = errors.New("idea provider failed")
	ErrAllModelsFailed   = errors.New("all models failed")
	ErrNoBackgroundFound = errors.New("no background video found")
	ErrComposeFailed     = errors.New("compose failed")
	ErrPublishFailed     = errors.New("publish failed")

	ErrNoIdea          = errors.New("no idea yet: generate one first")
	ErrNoRender        = errors.New("nothing rendered yet")
	ErrArtifactMissing = errors.New("rendered video is gone: render again")
)
