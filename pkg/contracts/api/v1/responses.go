package api

// Response is the envelope returned by JSON endpoints on success.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

// SuccessWithCount wraps a collection and its length.
func SuccessWithCount(data interface{}, count int) Response {
	return Response{Status: "success", Data: data, Count: &count}
}
