package skin

import "log/slog"

// BindingBuilderOption is a functional option for configuring a Binding during Bind.
type BindingBuilderOption func(*Binding)

// WithRenormalizeWeights is an option builder that rescales the kept weights of truncated
// vertices so they sum to 1. Off by default.
//
// Parameters:
//   - renormalize: whether truncated vertices are renormalized
//
// Returns:
//   - BindingBuilderOption: a function that applies the option to a Binding
func WithRenormalizeWeights(renormalize bool) BindingBuilderOption {
	return func(b *Binding) {
		b.renormalize = renormalize
	}
}

// WithLogger is an option builder that sets the structured logger used during Bind.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - BindingBuilderOption: a function that applies the logger option to a Binding
func WithLogger(logger *slog.Logger) BindingBuilderOption {
	return func(b *Binding) {
		if logger != nil {
			b.logger = logger
		}
	}
}
