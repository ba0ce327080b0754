package dto

type SubmitReportRequest struct {
	Reason  string `json:"reason" binding:"required,max=100"`
	Details string `json:"details" binding:"omitempty,max=1000"`
}

type ReportActionRequest struct {
	Action string `json:"action" binding:"required,oneof=resolve dismiss delete_post"`
}
