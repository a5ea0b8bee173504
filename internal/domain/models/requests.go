package models

// Requests for the admin/report HTTP endpoints. Defined in domain for
// consistency and reuse.

type CreateBotRequest struct {
	Pair            string  `json:"pair" validate:"required"`
	Venue           string  `json:"venue" default:"orca" validate:"required"`
	Allocation      float64 `json:"allocation" validate:"required,gt=0"`
	IntervalSeconds int     `json:"interval_seconds" default:"30" validate:"gte=1,lte=3600"`
}

type DepositRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type WithdrawRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type TransferRequest struct {
	FromBotID string  `json:"from_bot_id" validate:"required"`
	ToBotID   string  `json:"to_bot_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

type AllocateRequest struct {
	BotID  string  `json:"bot_id" param:"id" validate:"required"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type ReportRequest struct {
	BotID string `query:"bot_id" json:"bot_id" param:"id"`
}
