package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"watchdeck/config"
	"watchdeck/models"
)

// WatchlistRefresher reloads the watchlist from the persistence server.
// Implemented by watchlist.Store.
type WatchlistRefresher interface {
	Load(ctx context.Context) error
}

// RecommendationsSource asks the persistence server to recompute
// recommendations. Implemented by server.Client.
type RecommendationsSource interface {
	Recommendations(ctx context.Context, refresh bool) ([]models.CatalogItem, error)
}

// Service manages scheduled task execution. Both task types ship
// disabled; the realtime channel keeps state fresh, so periodic work is
// opt-in.
type Service struct {
	configManager   *config.Manager
	watchlist       WatchlistRefresher
	recommendations RecommendationsSource

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Task state tracking (in-memory, not persisted)
	taskRunning map[string]bool
	taskMu      sync.RWMutex
}

// NewService creates a new scheduler service.
func NewService(
	configManager *config.Manager,
	watchlist WatchlistRefresher,
	recommendations RecommendationsSource,
) *Service {
	return &Service{
		configManager:   configManager,
		watchlist:       watchlist,
		recommendations: recommendations,
		taskRunning:     make(map[string]bool),
	}
}

// Start begins the scheduler background loop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(1)
	go s.schedulerLoop()

	log.Println("[scheduler] Scheduler service started")
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] Scheduler service stopped gracefully")
	case <-ctx.Done():
		log.Println("[scheduler] Scheduler service stopped (timeout)")
	}

	s.running = false
	return nil
}

// schedulerLoop is the main background loop that checks for tasks to run.
func (s *Service) schedulerLoop() {
	defer s.wg.Done()

	settings, err := s.configManager.Load()
	if err != nil {
		log.Printf("[scheduler] Failed to load settings: %v", err)
		return
	}

	checkInterval := time.Duration(settings.ScheduledTasks.CheckIntervalSeconds) * time.Second
	if checkInterval < time.Second {
		checkInterval = 60 * time.Second
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	// Run check immediately on start
	s.checkAndRunTasks(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.checkAndRunTasks(s.ctx)
		}
	}
}

// checkAndRunTasks checks all enabled tasks and runs those that are due.
func (s *Service) checkAndRunTasks(ctx context.Context) {
	settings, err := s.configManager.Load()
	if err != nil {
		log.Printf("[scheduler] Failed to load settings: %v", err)
		return
	}

	for _, task := range settings.ScheduledTasks.Tasks {
		if !task.Enabled {
			continue
		}

		if s.shouldRun(task) {
			// Run task in goroutine to not block other tasks
			s.wg.Add(1)
			go func(t config.ScheduledTask) {
				defer s.wg.Done()
				s.executeTask(ctx, t)
			}(task)
		}
	}
}

// shouldRun checks if a task is due to run.
func (s *Service) shouldRun(task config.ScheduledTask) bool {
	s.taskMu.RLock()
	if s.taskRunning[task.ID] {
		s.taskMu.RUnlock()
		return false
	}
	s.taskMu.RUnlock()

	// Never run before
	if task.LastRunAt == nil {
		return true
	}

	return time.Since(*task.LastRunAt) >= s.getInterval(task.Frequency)
}

// getInterval returns the duration for a given frequency.
func (s *Service) getInterval(freq config.ScheduledTaskFrequency) time.Duration {
	switch freq {
	case config.ScheduledTaskFrequencyHourly:
		return 1 * time.Hour
	case config.ScheduledTaskFrequency6Hours:
		return 6 * time.Hour
	case config.ScheduledTaskFrequencyDaily:
		return 24 * time.Hour
	case config.ScheduledTaskFrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// executeTask runs a task and updates its status.
func (s *Service) executeTask(ctx context.Context, task config.ScheduledTask) {
	s.taskMu.Lock()
	s.taskRunning[task.ID] = true
	s.taskMu.Unlock()

	defer func() {
		s.taskMu.Lock()
		delete(s.taskRunning, task.ID)
		s.taskMu.Unlock()
	}()

	log.Printf("[scheduler] Executing task: %s (%s)", task.Name, task.Type)

	var err error
	switch task.Type {
	case config.ScheduledTaskTypeWatchlistRefresh:
		err = s.watchlist.Load(ctx)
	case config.ScheduledTaskTypeRecommendationsRefresh:
		_, err = s.recommendations.Recommendations(ctx, true)
	default:
		log.Printf("[scheduler] Unknown task type: %s", task.Type)
		return
	}

	s.updateTaskStatus(task.ID, err)
}

// updateTaskStatus updates a task's status in the settings file.
func (s *Service) updateTaskStatus(taskID string, err error) {
	settings, loadErr := s.configManager.Load()
	if loadErr != nil {
		log.Printf("[scheduler] Failed to load settings to update task status: %v", loadErr)
		return
	}

	task := settings.ScheduledTasks.TaskByID(taskID)
	if task == nil {
		log.Printf("[scheduler] Task %s vanished from settings, not updating status", taskID)
		return
	}

	now := time.Now().UTC()
	task.LastRunAt = &now
	if err != nil {
		task.LastStatus = config.ScheduledTaskStatusError
		task.LastError = err.Error()
		log.Printf("[scheduler] Task %s failed: %v", taskID, err)
	} else {
		task.LastStatus = config.ScheduledTaskStatusSuccess
		task.LastError = ""
		log.Printf("[scheduler] Task %s completed successfully", taskID)
	}

	if saveErr := s.configManager.Save(settings); saveErr != nil {
		log.Printf("[scheduler] Failed to save task status: %v", saveErr)
	}
}

// RunTaskNow triggers immediate execution of a task.
func (s *Service) RunTaskNow(taskID string) error {
	settings, err := s.configManager.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	task := settings.ScheduledTasks.TaskByID(taskID)
	if task == nil {
		return errors.New("task not found")
	}

	s.taskMu.RLock()
	if s.taskRunning[taskID] {
		s.taskMu.RUnlock()
		return errors.New("task is already running")
	}
	s.taskMu.RUnlock()

	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.wg.Add(1)
	go func(t config.ScheduledTask) {
		defer s.wg.Done()
		s.executeTask(ctx, t)
	}(*task)
	return nil
}

// GetTaskStatus returns all tasks with their current status.
// Running tasks have their status overridden to "running".
func (s *Service) GetTaskStatus() []config.ScheduledTask {
	settings, err := s.configManager.Load()
	if err != nil {
		return nil
	}

	s.taskMu.RLock()
	defer s.taskMu.RUnlock()

	tasks := make([]config.ScheduledTask, len(settings.ScheduledTasks.Tasks))
	for i, task := range settings.ScheduledTasks.Tasks {
		tasks[i] = task
		if s.taskRunning[task.ID] {
			tasks[i].LastStatus = config.ScheduledTaskStatusRunning
		}
	}

	return tasks
}

// IsTaskRunning checks if a specific task is currently running.
func (s *Service) IsTaskRunning(taskID string) bool {
	s.taskMu.RLock()
	defer s.taskMu.RUnlock()
	return s.taskRunning[taskID]
}
