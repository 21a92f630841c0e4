package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/GoCodeAlone/workflow-components/component"
	"github.com/GoCodeAlone/workflow-components/invoke"
	"github.com/GoCodeAlone/workflow-components/registry"
)

const (
	// maxRunBody caps the size of a run request.
	maxRunBody = 10 << 20
	// statusClientClosed is the nginx convention for a request the client
	// abandoned.
	statusClientClosed = 499
)

// RunRequest is the body of POST /v1/components/{name}/run.
type RunRequest struct {
	Config map[string]any `json:"config,omitempty"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

// ComponentHandler serves the component catalogue and runs components.
type ComponentHandler struct {
	inv *invoke.Invoker
}

// NewComponentHandler creates a ComponentHandler over inv.
func NewComponentHandler(inv *invoke.Invoker) *ComponentHandler {
	return &ComponentHandler{inv: inv}
}

// List handles GET /v1/components[?group=g].
func (h *ComponentHandler) List(w http.ResponseWriter, r *http.Request) {
	reg := h.inv.Registry()
	if group := r.URL.Query().Get("group"); group != "" {
		WriteJSON(w, http.StatusOK, reg.ByGroup(group))
		return
	}
	WriteJSON(w, http.StatusOK, reg.Descriptors())
}

// Get handles GET /v1/components/{name}.
func (h *ComponentHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.inv.Registry().Lookup(r.PathValue("name"))
	if !ok {
		WriteError(w, http.StatusNotFound, "component not found")
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

// Run handles POST /v1/components/{name}/run.
func (h *ComponentHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	out, err := h.inv.Invoke(r.Context(), r.PathValue("name"), req.Config, req.Inputs)
	if err != nil {
		status := StatusFor(err)
		writeErrorKind(w, status, invoke.Outcome(err), err.Error())
		return
	}
	if f, ok := out.(component.File); ok {
		out = f.ToMap()
	}
	WriteJSON(w, http.StatusOK, out)
}

// StatusFor maps an invocation error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownComponent):
		return http.StatusNotFound
	case errors.Is(err, component.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, component.ErrExternalFailure):
		return http.StatusBadGateway
	case errors.Is(err, component.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled):
		return statusClientClosed
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
