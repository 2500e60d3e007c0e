package agent

// HeaderField is a single HTTP header name/value pair as exchanged with
// the canister's HTTP request entry point.
type HeaderField struct {
	Name  string `cbor:"name"`
	Value string `cbor:"value"`
}

// Callback is the canister-side streaming directive: the canister and
// method to invoke, plus an opaque continuation token the gateway
// round-trips without interpreting.
type Callback struct {
	Canister []byte    `cbor:"canister"`
	Method   string    `cbor:"method"`
	Token    CBORValue `cbor:"token"`
}

// CBORValue holds an opaque, already-decoded CBOR value (the streaming
// token, or a callback's response token) that the gateway never
// interprets, only stores and re-sends verbatim.
type CBORValue struct {
	Raw []byte
}

// HTTPResponse is the canister's response to an http_request(_update)
// call, per spec.md §3.
type HTTPResponse struct {
	StatusCode        uint16        `cbor:"status_code"`
	Headers           []HeaderField `cbor:"headers"`
	Body              []byte             `cbor:"body"`
	Upgrade           *bool              `cbor:"upgrade,omitempty"`
	StreamingStrategy *StreamingStrategy `cbor:"streaming_strategy,omitempty"`
}

// StreamingStrategy carries the Callback variant the gateway supports.
type StreamingStrategy struct {
	Callback *Callback `cbor:"Callback,omitempty"`
}

// StreamingCallbackResponse is what a streaming callback invocation
// returns: the next chunk, and optionally a token for the next
// invocation (absent terminates the stream).
type StreamingCallbackResponse struct {
	Body  []byte     `cbor:"body"`
	Token *CBORValue `cbor:"token,omitempty"`
}

// HeadersData holds response headers extracted from the canister's
// reply headers: certificate, tree (both independently optional, with
// a decode-error marker distinguished from "absent"), and the raw
// content-encoding string. See spec.md §3/§4.2.
type HeadersData struct {
	Certificate FieldResult
	Tree        FieldResult
	Encoding    string // "" means absent; matched verbatim otherwise
}

// FieldResult is the result of decoding one IC-Certificate sub-field:
// absent (Present == false), a decode error (Present == true, Err !=
// nil), or successfully decoded bytes.
type FieldResult struct {
	Present bool
	Bytes   []byte
	Err     error
}
