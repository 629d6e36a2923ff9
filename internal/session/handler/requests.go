package handler

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type setAssignmentRequest struct {
	HeirID string `json:"heirId"`
}
