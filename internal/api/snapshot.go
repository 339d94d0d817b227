package api

import "net/http"

// SnapshotHandler serves the whole dataset.
type SnapshotHandler struct {
	Library Library
}

// Get handles GET /api/snapshot.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.GetSnapshot(r.Context())
	if err != nil {
		storeError(w, err, "failed to load dataset")
		return
	}
	jsonResponse(w, http.StatusOK, snapshot)
}

// Reset handles POST /api/reset.
func (h *SnapshotHandler) Reset(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Library.ResetDemoState(r.Context())
	if err != nil {
		storeError(w, err, "failed to reset dataset")
		return
	}
	jsonResponse(w, http.StatusOK, snapshot)
}
