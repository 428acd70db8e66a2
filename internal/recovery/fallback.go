package recovery

import "context"

// Fallback invokes fallback when the primary operation fails. If the
// fallback fails too, the primary's error is the one propagated, since it
// describes the failure the caller actually cares about.
func Fallback(fallback Operation) Wrapper {
	return func(op Operation) Operation {
		return func(ctx context.Context) (any, error) {
			out, err := op(ctx)
			if err == nil {
				return out, nil
			}

			fbOut, fbErr := fallback(ctx)
			if fbErr != nil {
				return nil, err
			}
			return fbOut, nil
		}
	}
}
