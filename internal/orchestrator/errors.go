package orchestrator

import "errors"

// ErrNoSuchFile means an OSC command named a file not present in
// configuration. The command is discarded; the process keeps running.
var ErrNoSuchFile = errors.New("orchestrator: no such file")

// ErrNoSuchActiveFile means an OSC command targeted a file with no active
// session. The command is discarded; the process keeps running.
var ErrNoSuchActiveFile = errors.New("orchestrator: no such active file")
