package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"watchdeck/config"
	"watchdeck/services/scheduler"
)

// ScheduledTasksHandler exposes the background task runner. The task set is
// fixed (one entry per task type), so there are no create or delete
// endpoints; tasks are enabled, tuned and triggered in place.
type ScheduledTasksHandler struct {
	configManager    *config.Manager
	schedulerService *scheduler.Service
}

func NewScheduledTasksHandler(configManager *config.Manager, schedulerService *scheduler.Service) *ScheduledTasksHandler {
	return &ScheduledTasksHandler{
		configManager:    configManager,
		schedulerService: schedulerService,
	}
}

// ListTasks returns all tasks with current status
// GET /api/tasks
func (h *ScheduledTasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks := h.schedulerService.GetTaskStatus()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"tasks": tasks,
	})
}

// UpdateTask changes a task's name, frequency or enablement
// PUT /api/tasks/{taskID}
func (h *ScheduledTasksHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	if taskID == "" {
		writeTaskError(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Name      string                        `json:"name"`
		Frequency config.ScheduledTaskFrequency `json:"frequency"`
		Enabled   *bool                         `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTaskError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Frequency != "" && !config.ValidTaskFrequency(req.Frequency) {
		writeTaskError(w, "Unknown frequency: "+string(req.Frequency), http.StatusBadRequest)
		return
	}

	settings, err := h.configManager.Load()
	if err != nil {
		writeTaskError(w, "Failed to load settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	task := settings.ScheduledTasks.TaskByID(taskID)
	if task == nil {
		writeTaskError(w, "Task not found", http.StatusNotFound)
		return
	}
	if req.Name != "" {
		task.Name = req.Name
	}
	if req.Frequency != "" {
		task.Frequency = req.Frequency
	}
	if req.Enabled != nil {
		task.Enabled = *req.Enabled
	}

	if err := h.configManager.Save(settings); err != nil {
		writeTaskError(w, "Failed to save settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"task":    task,
	})
}

// RunTaskNow triggers immediate execution of a task
// POST /api/tasks/{taskID}/run
func (h *ScheduledTasksHandler) RunTaskNow(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	if taskID == "" {
		writeTaskError(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	if err := h.schedulerService.RunTaskNow(taskID); err != nil {
		writeTaskError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Task execution started",
	})
}

// ToggleTask enables or disables a task
// POST /api/tasks/{taskID}/toggle
func (h *ScheduledTasksHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	if taskID == "" {
		writeTaskError(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTaskError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := h.configManager.Load()
	if err != nil {
		writeTaskError(w, "Failed to load settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	task := settings.ScheduledTasks.TaskByID(taskID)
	if task == nil {
		writeTaskError(w, "Task not found", http.StatusNotFound)
		return
	}
	task.Enabled = req.Enabled

	if err := h.configManager.Save(settings); err != nil {
		writeTaskError(w, "Failed to save settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"enabled": req.Enabled,
	})
}

func (h *ScheduledTasksHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeTaskError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": message,
	})
}
