package roomhandler

type HealthResponse struct {
	OK    bool  `json:"ok"`
	Time  int64 `json:"time" example:"1720000000000"`
	Rooms int   `json:"rooms"`
} // @name HealthResponse

type ErrorResponse struct {
	Error string `json:"error" example:"room_not_found"`
} // @name ErrorResponse
