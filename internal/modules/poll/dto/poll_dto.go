package dto

import pkgdto "chirpnet.io/chirp/pkg/dto"

type VoteRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// VoteResponse reports the poll state after a vote attempt. AlreadyVoted is
// set when the caller had voted before; the attempt is a no-op, not an error.
type VoteResponse struct {
	AlreadyVoted bool                `json:"already_voted"`
	Poll         pkgdto.PollResponse `json:"poll"`
}
