// Package scheduler — кооперативный планировщик в одну горутину.
// Задачи выполняются последовательно до конца, параллельных запусков
// нет; единственная точка ожидания — сон до ближайшей записи.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoubleChuang/ccxt-bot/pkg/logger"
)

// Job зарегистрированная задача без аргументов
type Job func()

type entry struct {
	// либо фиксированный интервал, либо запуск раз в days суток
	// со смещением at от полуночи
	interval time.Duration
	days     int
	at       time.Duration

	job  Job
	next time.Time
}

// Scheduler упорядоченный список записей расписания
type Scheduler struct {
	entries []*entry
}

// New создает пустой планировщик
func New() *Scheduler {
	return &Scheduler{}
}

// Every регистрирует задачу с фиксированным интервалом
func (s *Scheduler) Every(interval time.Duration, job Job) {
	s.entries = append(s.entries, &entry{interval: interval, job: job})
}

// EveryDaysAt регистрирует задачу раз в days суток в указанное
// время дня
func (s *Scheduler) EveryDaysAt(days, hour, minute, second int, job Job) {
	at := time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second
	s.entries = append(s.entries, &entry{days: days, at: at, job: job})
}

// Len возвращает количество зарегистрированных записей
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// Run крутит расписание до отмены контекста
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.entries) == 0 {
		logger.Warn("Планировщик запущен без записей")
		return
	}

	now := time.Now()
	for _, e := range s.entries {
		e.next = e.firstRun(now)
		logger.Info("Запись расписания",
			zap.Time("next", e.next),
			zap.Duration("interval", e.interval),
			zap.Int("days", e.days))
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		next := s.soonest()
		timer.Reset(time.Until(next))

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// просроченные задачи выполняются последовательно
		now = time.Now()
		for _, e := range s.entries {
			if e.next.After(now) {
				continue
			}
			e.job()
			e.advance()
		}
	}
}

func (s *Scheduler) soonest() time.Time {
	next := s.entries[0].next
	for _, e := range s.entries[1:] {
		if e.next.Before(next) {
			next = e.next
		}
	}
	return next
}

// firstRun считает первый запуск записи от момента now
func (e *entry) firstRun(now time.Time) time.Time {
	if e.interval > 0 {
		return now.Add(e.interval)
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := midnight.Add(e.at)
	for !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func (e *entry) advance() {
	if e.interval > 0 {
		e.next = time.Now().Add(e.interval)
		return
	}

	e.next = e.next.Add(time.Duration(e.days) * 24 * time.Hour)
	// защита от дрейфа, если задача выполнялась дольше суток
	now := time.Now()
	for !e.next.After(now) {
		e.next = e.next.Add(24 * time.Hour)
	}
}
