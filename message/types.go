package message

import (
	"fmt"
	"slices"
)

// MessageType identifies the RPC operation a Message carries.
// Values are part of the wire format and must never be renumbered.
type MessageType int64

const (
	// dist.rpc on builtin operators
	ScriptCall MessageType = 0
	ScriptRet  MessageType = 1
	// dist.rpc on user functions
	PythonCall MessageType = 2
	PythonRet  MessageType = 3
	// dist.remote on builtin operators and user functions
	ScriptRemoteCall MessageType = 4
	PythonRemoteCall MessageType = 5
	RemoteRet        MessageType = 6
	// RRef internal messages
	ScriptRRefFetchCall MessageType = 7
	PythonRRefFetchCall MessageType = 8
	ScriptRRefFetchRet  MessageType = 9
	PythonRRefFetchRet  MessageType = 10
	RRefUserDelete      MessageType = 11
	RRefForkRequest     MessageType = 12
	RRefChildAccept     MessageType = 13
	RRefAck             MessageType = 14
	// Autograd
	ForwardAutogradReq         MessageType = 15
	ForwardAutogradResp        MessageType = 16
	BackwardAutogradReq        MessageType = 17
	BackwardAutogradResp       MessageType = 18
	CleanupAutogradContextReq  MessageType = 19
	CleanupAutogradContextResp MessageType = 20
	// Profiling
	RunWithProfilingReq  MessageType = 21
	RunWithProfilingResp MessageType = 22

	Exception MessageType = 55
	Unknown   MessageType = 60
)

// requestTypes and responseTypes must stay disjoint.
var requestTypes = map[MessageType]struct{}{
	ScriptCall:                {},
	PythonCall:                {},
	ScriptRemoteCall:          {},
	PythonRemoteCall:          {},
	ScriptRRefFetchCall:       {},
	PythonRRefFetchCall:       {},
	RRefUserDelete:            {},
	RRefChildAccept:           {},
	RRefForkRequest:           {},
	BackwardAutogradReq:       {},
	ForwardAutogradReq:        {},
	CleanupAutogradContextReq: {},
	RunWithProfilingReq:       {},
}

var responseTypes = map[MessageType]struct{}{
	ScriptRet:                  {},
	PythonRet:                  {},
	RemoteRet:                  {},
	ScriptRRefFetchRet:         {},
	PythonRRefFetchRet:         {},
	Exception:                  {},
	RRefAck:                    {},
	BackwardAutogradResp:       {},
	ForwardAutogradResp:        {},
	CleanupAutogradContextResp: {},
	RunWithProfilingResp:       {},
}

var typeNames = map[MessageType]string{
	ScriptCall:                 "SCRIPT_CALL",
	ScriptRet:                  "SCRIPT_RET",
	PythonCall:                 "PYTHON_CALL",
	PythonRet:                  "PYTHON_RET",
	ScriptRemoteCall:           "SCRIPT_REMOTE_CALL",
	PythonRemoteCall:           "PYTHON_REMOTE_CALL",
	RemoteRet:                  "REMOTE_RET",
	ScriptRRefFetchCall:        "SCRIPT_RREF_FETCH_CALL",
	PythonRRefFetchCall:        "PYTHON_RREF_FETCH_CALL",
	ScriptRRefFetchRet:         "SCRIPT_RREF_FETCH_RET",
	PythonRRefFetchRet:         "PYTHON_RREF_FETCH_RET",
	RRefUserDelete:             "RREF_USER_DELETE",
	RRefForkRequest:            "RREF_FORK_REQUEST",
	RRefChildAccept:            "RREF_CHILD_ACCEPT",
	RRefAck:                    "RREF_ACK",
	ForwardAutogradReq:         "FORWARD_AUTOGRAD_REQ",
	ForwardAutogradResp:        "FORWARD_AUTOGRAD_RESP",
	BackwardAutogradReq:        "BACKWARD_AUTOGRAD_REQ",
	BackwardAutogradResp:       "BACKWARD_AUTOGRAD_RESP",
	CleanupAutogradContextReq:  "CLEANUP_AUTOGRAD_CONTEXT_REQ",
	CleanupAutogradContextResp: "CLEANUP_AUTOGRAD_CONTEXT_RESP",
	RunWithProfilingReq:        "RUN_WITH_PROFILING_REQ",
	RunWithProfilingResp:       "RUN_WITH_PROFILING_RESP",
	Exception:                  "EXCEPTION",
	Unknown:                    "UNKNOWN",
}

// IsRequest reports whether t is handled by a call handler on the receiving side.
func (t MessageType) IsRequest() bool {
	_, ok := requestTypes[t]
	return ok
}

// IsResponse reports whether t completes a pending request on the receiving side.
func (t MessageType) IsResponse() bool {
	_, ok := responseTypes[t]
	return ok
}

// Known reports whether t is one of the enumerators above. Decoding does not
// reject unknown tags; callers that care check this.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int64(t))
}

// RequestTypes returns the request classification set in ascending order.
func RequestTypes() []MessageType { return sortedTypes(requestTypes) }

// ResponseTypes returns the response classification set in ascending order.
func ResponseTypes() []MessageType { return sortedTypes(responseTypes) }

func sortedTypes(set map[MessageType]struct{}) []MessageType {
	out := make([]MessageType, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
