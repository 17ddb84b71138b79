package stats

import (
	"reflect"
	"testing"

	"github.com/verte-zerg/attendr/internal/model"
)

func TestSubjectsAtRisk(t *testing.T) {
	all := map[string]model.SubjectStats{
		"Physics":   {TotalConducted: 4, Percentage: 50},
		"Math":      {TotalConducted: 4, Percentage: 75},
		"Chemistry": {TotalConducted: 2, Percentage: 50},
		"Art":       {},
	}
	got := SubjectsAtRisk(all, 2)
	if !reflect.DeepEqual(got, []string{"Chemistry", "Physics"}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if got := SubjectsAtRisk(all, 0); len(got) != 3 {
		t.Fatalf("expected subjects with conducted slots only, got %v", got)
	}
}

func TestOrderedSubjectsDropsDuplicates(t *testing.T) {
	settings := model.Settings{Subjects: []string{"Math", "Physics", "Math"}}
	if got := OrderedSubjects(settings); !reflect.DeepEqual(got, []string{"Math", "Physics"}) {
		t.Fatalf("unexpected subjects: %v", got)
	}
}
