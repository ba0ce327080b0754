package dto

type SubmitNoteRequest struct {
	Content  string   `json:"content" binding:"required,max=280"`
	Sources  []string `json:"sources" binding:"required,min=1,max=3,dive,required,url"`
	Category string   `json:"category"`
}

type RateNoteRequest struct {
	Rating string `json:"rating" binding:"required,oneof=helpful not_helpful"`
}

type NoteStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

type StaffNoteRequest struct {
	Content  string `json:"content" binding:"required,max=1000"`
	NoteType string `json:"note_type" binding:"omitempty,oneof=info warning misleading investigation violation"`
}
