package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// DashboardMetrics is returned by GET /v1/metrics/dashboard.
type DashboardMetrics struct {
	BoardRequests         int64   `json:"boardRequests"`
	MutationsSucceeded    int64   `json:"mutationsSucceeded"`
	MutationsFailed       int64   `json:"mutationsFailed"`
	BackendErrors         int64   `json:"backendErrors"`
	CacheHitRate          float64 `json:"cacheHitRate"`
	NotificationsEnqueued int64   `json:"notificationsEnqueued"`
	WizardCompletions     int64   `json:"wizardCompletions"`
	DuplicateSlotRecords  int64   `json:"duplicateSlotRecords"`
	Period                string  `json:"period"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
