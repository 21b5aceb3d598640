package algo

import (
	"slices"
	"sort"

	"github.com/huangsam/backupwatch/schema"
)

// Pair is one unit of schedule analysis: a task, one of its schedules and the
// records that schedule produced.
type Pair struct {
	Task     string
	Schedule string
	Records  []schema.BackupRecord
}

// Participates reports whether a record takes part in compliance analysis.
func Participates(r schema.BackupRecord) bool {
	return r.IsBackup &&
		r.SubtaskFlag == schema.NotSubtask &&
		r.Task != "" &&
		r.Kind != "" &&
		r.HasStart()
}

// GroupByTask buckets participating records by task and then by schedule name.
// Buckets keep input order.
func GroupByTask(records []schema.BackupRecord) map[string]map[string][]schema.BackupRecord {
	groups := make(map[string]map[string][]schema.BackupRecord)
	for _, r := range records {
		if !Participates(r) {
			continue
		}
		bySchedule, ok := groups[r.Task]
		if !ok {
			bySchedule = make(map[string][]schema.BackupRecord)
			groups[r.Task] = bySchedule
		}
		bySchedule[r.Schedule] = append(bySchedule[r.Schedule], r)
	}
	return groups
}

// UsedSchedules maps each task to the schedule names it ran under, without
// duplicates and in first-seen order.
func UsedSchedules(events []schema.TaskEvent) map[string][]string {
	used := make(map[string][]string)
	for _, e := range events {
		if e.Task == "" || e.Schedule == "" {
			continue
		}
		if slices.Contains(used[e.Task], e.Schedule) {
			continue
		}
		used[e.Task] = append(used[e.Task], e.Schedule)
	}
	return used
}

// Pairs resolves the (task, schedule) units of work. Tasks are visited in
// name order so that the work list is deterministic.
func Pairs(groups map[string]map[string][]schema.BackupRecord, used map[string][]string) []Pair {
	tasks := make([]string, 0, len(groups))
	for task := range groups {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	var pairs []Pair
	for _, task := range tasks {
		for _, name := range used[task] {
			pairs = append(pairs, Pair{Task: task, Schedule: name, Records: groups[task][name]})
		}
	}
	return pairs
}
