package models

type ProjectListResponse struct {
	Projects []Project `json:"projects"`
}

type VersionListResponse struct {
	Versions []Version `json:"versions"`
}

type LayerListResponse struct {
	Layers []Layer `json:"layers"`
}

// GenerationAcceptedResponse acknowledges a generation request before any provider work happens.
type GenerationAcceptedResponse struct {
	RequestID int64            `json:"request_id"`
	Code      string           `json:"code"`
	Status    GenerationStatus `json:"status"`
	Progress  int              `json:"progress"`
	PollURL   string           `json:"poll_url"`
}

type GenerationListResponse struct {
	Requests []GenerationRequest `json:"requests"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"ok"`
}
