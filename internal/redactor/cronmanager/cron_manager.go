// Пакет для управления периодическими задачами сервера: автосохранение открытых документов и очистка картинок.
//
// Основные возможности:
//   - Загрузка задач из реестра.
//   - Изменение расписания задачи на лету.
//   - Удаление задач из расписания.
//   - Запуск и остановка диспетчера.
package cronmanager

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

type CronJobFunc func()

type Job struct {
	Func     CronJobFunc
	Schedule string
}

type JobRegistry map[string]Job

type CronManager struct {
	dispatcher  *cron.Cron
	jobs        map[string]cron.EntryID
	mu          sync.Mutex
	jobRegistry JobRegistry
}

// Every расписание с интервалом в секундах.
func Every(seconds int) string {
	return fmt.Sprintf("@every %ds", seconds)
}

// NewCronManager создает менеджер задач. Паника в задаче не останавливает диспетчер.
func NewCronManager(jobRegistry JobRegistry) *CronManager {
	dispatcher := cron.New(
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	return &CronManager{
		dispatcher:  dispatcher,
		jobs:        make(map[string]cron.EntryID),
		jobRegistry: jobRegistry,
	}
}

// LoadJobs заново добавляет в расписание все задачи реестра. Возвращает первую ошибку расписания.
func (cm *CronManager) LoadJobs() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for name, entryID := range cm.jobs {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}

	var firstErr error
	for name := range cm.jobRegistry {
		if err := cm.addJob(name); err != nil {
			slog.Error("Error adding job", "name", name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (cm *CronManager) addJob(name string) error {
	job, exists := cm.jobRegistry[name]
	if !exists {
		return fmt.Errorf("no job function registered for name: %s", name)
	}

	id, err := cm.dispatcher.AddFunc(job.Schedule, job.Func)
	if err != nil {
		return fmt.Errorf("add job '%s': %w", name, err)
	}
	cm.jobs[name] = id
	return nil
}

// Reschedule меняет расписание задачи из реестра. При ошибке старое расписание сохраняется.
func (cm *CronManager) Reschedule(name, schedule string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	job, exists := cm.jobRegistry[name]
	if !exists {
		return fmt.Errorf("no job function registered for name: %s", name)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("schedule '%s': %w", schedule, err)
	}

	if entryID, ok := cm.jobs[name]; ok {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
	job.Schedule = schedule
	cm.jobRegistry[name] = job
	return cm.addJob(name)
}

// RemoveJob убирает задачу из расписания. Задача остается в реестре.
func (cm *CronManager) RemoveJob(name string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if entryID, exists := cm.jobs[name]; exists {
		cm.dispatcher.Remove(entryID)
		delete(cm.jobs, name)
	}
}

// Scheduled стоит ли задача в расписании.
func (cm *CronManager) Scheduled(name string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	_, ok := cm.jobs[name]
	return ok
}

func (cm *CronManager) Start() {
	cm.dispatcher.Start()
}

// Stop останавливает диспетчер и ждет завершения запущенных задач.
func (cm *CronManager) Stop() {
	ctx := cm.dispatcher.Stop()
	<-ctx.Done()
}
