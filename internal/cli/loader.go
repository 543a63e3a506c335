package cli

import "github.com/castor-ai/castor/internal/engine"

// backendLoader returns the in-process model loader when one is linked into
// the binary. The default build carries none, so the local tier is served by
// the supervised llama-server. A cgo llama.cpp build replaces this hook.
var backendLoader = func() engine.Loader { return nil }
