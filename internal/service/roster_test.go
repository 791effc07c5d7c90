package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func strPtr(s string) *string { return &s }

func TestMergeRosterRow_Defaults(t *testing.T) {
	row := service.MergeRosterRow(&model.TeacherStudent{StudentID: "s1", Strand: strPtr("HUMMS")}, nil, nil)

	assert.Equal(t, "Unknown Student", row.Name)
	assert.Equal(t, "US", row.Initials)
	assert.Equal(t, model.StudentStatusActive, row.Status)
	assert.Equal(t, "HUMSS", row.Strand)
	assert.Equal(t, 0, row.Progress)
	assert.Equal(t, 0, row.Confidence)
	assert.Equal(t, 100, row.Anxiety)
	assert.Equal(t, 0, row.Satisfaction)
}

func TestMergeRosterRow_WithProgress(t *testing.T) {
	row := service.MergeRosterRow(
		&model.TeacherStudent{StudentID: "s1", GradeLevel: strPtr("Grade 11"), Status: strPtr(model.StudentStatusInactive)},
		&model.Profile{ID: "s1", Name: strPtr("  Ana Cruz ")},
		&model.StudentProgress{SpeakingCompleted: 1, SpeakingTotal: 2, ReadingCompleted: 0, ReadingTotal: 1, Confidence: intPtr(70), Anxiety: intPtr(20)},
	)

	assert.Equal(t, "Ana Cruz", row.Name)
	assert.Equal(t, "AC", row.Initials)
	assert.Equal(t, "Grade 11", row.Grade)
	assert.Equal(t, model.StudentStatusInactive, row.Status)
	assert.Equal(t, 33, row.Progress)
	assert.Equal(t, 70, row.Confidence)
	assert.Equal(t, 20, row.Anxiety)
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, service.ProgressPercent(&model.StudentProgress{}))
	assert.Equal(t, 67, service.ProgressPercent(&model.StudentProgress{SpeakingCompleted: 2, SpeakingTotal: 3}))
	assert.Equal(t, 100, service.ProgressPercent(&model.StudentProgress{SpeakingCompleted: 9, SpeakingTotal: 3}))
}

func TestComputeStats(t *testing.T) {
	assert.Equal(t, model.RosterStats{}, service.ComputeStats(nil))

	stats := service.ComputeStats([]model.RosterRow{
		{Status: model.StudentStatusActive, Progress: 50, Confidence: 80},
		{Status: model.StudentStatusInactive, Progress: 25, Confidence: 41},
	})
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 1, stats.ActiveStudents)
	assert.Equal(t, 38, stats.AverageProgress)
	assert.Equal(t, 0, stats.AverageSatisfaction)
	assert.Equal(t, 61, stats.AverageConfidence)
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"":               "??",
		"   ":            "??",
		"ana cruz":       "AC",
		"Ana Maria Cruz": "AM",
		"bea":            "BE",
		"Z":              "Z",
		"ñino ávila":     "ÑÁ",
	}
	for in, want := range cases {
		assert.Equal(t, want, service.Initials(in), "input %q", in)
	}
}

func TestColorFor(t *testing.T) {
	// "ab" sums to 97+98=195, 195%8=3
	assert.Equal(t, "#34d399", service.ColorFor("ab"))
	assert.Equal(t, service.ColorFor("student-1"), service.ColorFor("student-1"))
	assert.Equal(t, "#a78bfa", service.ColorFor(""))
}

func TestNormalizeStrand(t *testing.T) {
	assert.Equal(t, "HUMSS", service.NormalizeStrand("HUMMS"))
	assert.Equal(t, "humms", service.NormalizeStrand("humms"))
	assert.Equal(t, "STEM", service.NormalizeStrand("STEM"))
}

func TestRosterService_Roster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, f.db, "s1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, f.db, "s2", "Ben", dbtest.Student)
	f.link(t, "t1", "s1", model.StudentStatusActive)
	f.link(t, "t1", "s2", model.StudentStatusInactive)

	require.NoError(t, f.progress.Upsert(ctx, &model.StudentProgress{StudentID: "s1", SpeakingCompleted: 1, SpeakingTotal: 2, Confidence: intPtr(90)}))
	f.store.put("s1/100.png", time.Now().Add(-time.Hour))
	f.store.put("s1/200.png", time.Now())

	svc := service.NewRosterService(f.links, f.profiles, f.progress, f.resolver)
	roster, err := svc.Roster(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, roster.Students, 2)

	byID := map[string]model.RosterRow{}
	for _, r := range roster.Students {
		byID[r.ID] = r
	}
	assert.Equal(t, "signed://s1/200.png", byID["s1"].AvatarURL)
	assert.Equal(t, 50, byID["s1"].Progress)
	assert.Equal(t, 90, byID["s1"].Confidence)
	assert.Empty(t, byID["s2"].AvatarURL)
	assert.Equal(t, 100, byID["s2"].Anxiety)

	assert.Equal(t, 2, roster.Stats.TotalStudents)
	assert.Equal(t, 1, roster.Stats.ActiveStudents)
	assert.Equal(t, 25, roster.Stats.AverageProgress)

	empty, err := svc.Roster(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Students)
	assert.Equal(t, 0, empty.Stats.TotalStudents)
}
