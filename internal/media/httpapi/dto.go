package httpapi

import "github.com/romariotrain/media-pipeline/internal/media/upload"

type UploadResponse struct {
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
}

type BatchFailure struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type BatchUploadResponse struct {
	Results []UploadResponse `json:"results"`
	Failed  []BatchFailure   `json:"failed,omitempty"`
}

type SourceResponse struct {
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func toUploadResponse(r *upload.Result) UploadResponse {
	return UploadResponse{AssetID: r.AssetID, URL: r.URL}
}
