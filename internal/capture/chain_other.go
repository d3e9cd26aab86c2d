//go:build !windows

package capture

// backendChain on non-Windows platforms has only the cross-platform
// fallback: the GPU tier (Desktop Duplication) is Windows-only and the
// compositor tier (e.g. a portal-based capture API) is not implemented in
// this tree — see DESIGN.md.
func backendChain() []backendCandidate {
	return []backendCandidate{
		{name: "fallback-screengrab", new: func() (Backend, error) { return NewFallbackBackend() }},
	}
}
