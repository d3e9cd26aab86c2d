//go:build windows

package capture

// backendChain ranks GPU desktop duplication above the cross-platform
// fallback. There is no compositor-tier (tier 2) implementation in this
// tree, on Windows or on any other platform.
func backendChain() []backendCandidate {
	return []backendCandidate{
		{name: "gpu-desktop-duplication", new: func() (Backend, error) { return NewDesktopDuplicationBackend() }},
		{name: "fallback-screengrab", new: func() (Backend, error) { return NewFallbackBackend() }},
	}
}
