package agent

import "errors"

// errRedactedLeak marks a cloud response that reintroduced personal data the
// redaction pass had removed. Such responses are discarded.
var errRedactedLeak = errors.New("response reintroduced personal data")
