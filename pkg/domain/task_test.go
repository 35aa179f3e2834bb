package domain_test

import (
	"testing"
	"time"

	"github.com/analytical-platform/controlpanel/pkg/domain"
	"github.com/analytical-platform/controlpanel/pkg/utils/pointer"
)

func TestTaskAgedOut(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cutoff := 3 * 24 * time.Hour

	for name, testcase := range map[string]struct {
		task domain.Task
		want bool
	}{
		"fresh incomplete task": {
			domain.Task{CreatedAt: now.Add(-time.Hour)}, false,
		},
		"stale incomplete task": {
			domain.Task{CreatedAt: now.Add(-cutoff - time.Minute)}, true,
		},
		"exactly at the cutoff": {
			domain.Task{CreatedAt: now.Add(-cutoff)}, false,
		},
		"stale but completed": {
			domain.Task{CreatedAt: now.Add(-30 * 24 * time.Hour), Completed: true}, false,
		},
		"stale but cancelled": {
			domain.Task{CreatedAt: now.Add(-30 * 24 * time.Hour), Cancelled: true}, false,
		},
		"stale despite a recent retry": {
			domain.Task{
				CreatedAt: now.Add(-cutoff - time.Minute),
				RetriedAt: pointer.Ref(now.Add(-time.Minute)),
			}, true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			if got := testcase.task.AgedOut(now, cutoff); got != testcase.want {
				t.Errorf("got %v, want %v", got, testcase.want)
			}
		})
	}
}
