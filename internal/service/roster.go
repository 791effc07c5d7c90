package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/voclaria/voclaria/internal/avatar"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/repository"
)

const unknownStudent = "Unknown Student"

var avatarPalette = []string{
	"#a78bfa", "#60a5fa", "#f472b6", "#34d399",
	"#f59e0b", "#f87171", "#22d3ee", "#4ade80",
}

// Roster is one synchronization pass for a teacher's class.
type Roster struct {
	Students []model.RosterRow `json:"students"`
	Stats    model.RosterStats `json:"stats"`
}

type RosterService struct {
	teacherStudentRepository repository.TeacherStudentRepository
	profileRepository        repository.ProfileRepository
	progressRepository       repository.ProgressRepository
	resolver                 *avatar.Resolver
}

func NewRosterService(
	teacherStudentRepository repository.TeacherStudentRepository,
	profileRepository repository.ProfileRepository,
	progressRepository repository.ProgressRepository,
	resolver *avatar.Resolver,
) *RosterService {
	return &RosterService{
		teacherStudentRepository: teacherStudentRepository,
		profileRepository:        profileRepository,
		progressRepository:       progressRepository,
		resolver:                 resolver,
	}
}

// Students reads links, then profiles, then progress, then signs avatars.
// Any read error fails the whole pass.
func (s *RosterService) Students(ctx context.Context, teacherID string) ([]model.RosterRow, error) {
	links, err := s.teacherStudentRepository.ByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	if len(links) == 0 {
		return []model.RosterRow{}, nil
	}

	ids := uniqueStudentIDs(links)

	profiles, err := s.profileRepository.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	byID := make(map[string]*model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	progress, err := s.progressRepository.ByStudentIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	progressByID := make(map[string]*model.StudentProgress, len(progress))
	for _, p := range progress {
		progressByID[p.StudentID] = p
	}

	hints := make(map[string]string, len(ids))
	for _, id := range ids {
		hints[id] = byID[id].StoredAvatar()
	}
	avatars := s.resolver.ResolveAll(ctx, hints)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := make([]model.RosterRow, 0, len(links))
	for _, link := range links {
		row := MergeRosterRow(link, byID[link.StudentID], progressByID[link.StudentID])
		row.AvatarURL = avatars[link.StudentID]
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *RosterService) Roster(ctx context.Context, teacherID string) (*Roster, error) {
	rows, err := s.Students(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return &Roster{Students: rows, Stats: ComputeStats(rows)}, nil
}

func uniqueStudentIDs(links []*model.TeacherStudent) []string {
	seen := make(map[string]bool, len(links))
	ids := make([]string, 0, len(links))
	for _, l := range links {
		if !seen[l.StudentID] {
			seen[l.StudentID] = true
			ids = append(ids, l.StudentID)
		}
	}
	return ids
}

// MergeRosterRow builds the row for one link. profile and progress may be nil.
func MergeRosterRow(link *model.TeacherStudent, profile *model.Profile, progress *model.StudentProgress) model.RosterRow {
	name := DisplayName(profile, unknownStudent)

	status := model.StudentStatusActive
	if link.Status != nil && *link.Status != "" {
		status = *link.Status
	}

	row := model.RosterRow{
		ID:         link.StudentID,
		Name:       name,
		Grade:      deref(link.GradeLevel),
		Strand:     NormalizeStrand(deref(link.Strand)),
		Status:     status,
		Confidence: 0,
		Anxiety:    100,
		Initials:   Initials(name),
		Color:      ColorFor(link.StudentID),
	}

	if progress != nil {
		row.Progress = ProgressPercent(progress)
		if progress.Confidence != nil {
			row.Confidence = *progress.Confidence
		}
		if progress.Anxiety != nil {
			row.Anxiety = *progress.Anxiety
		}
	}
	return row
}

// ProgressPercent is completed over total across speaking and reading,
// rounded and clamped to 0..100. No work assigned counts as 0.
func ProgressPercent(p *model.StudentProgress) int {
	total := p.SpeakingTotal + p.ReadingTotal
	if total <= 0 {
		return 0
	}
	done := p.SpeakingCompleted + p.ReadingCompleted
	pct := int(math.Round(float64(done) / float64(total) * 100))
	return max(0, min(100, pct))
}

func ComputeStats(rows []model.RosterRow) model.RosterStats {
	stats := model.RosterStats{TotalStudents: len(rows)}
	if len(rows) == 0 {
		return stats
	}

	var progress, satisfaction, confidence int
	for _, r := range rows {
		if r.Status == model.StudentStatusActive {
			stats.ActiveStudents++
		}
		progress += r.Progress
		satisfaction += r.Satisfaction
		confidence += r.Confidence
	}

	n := float64(len(rows))
	stats.AverageProgress = int(math.Round(float64(progress) / n))
	stats.AverageSatisfaction = int(math.Round(float64(satisfaction) / n))
	stats.AverageConfidence = int(math.Round(float64(confidence) / n))
	return stats
}

// DisplayName returns the trimmed profile name or fallback.
func DisplayName(p *model.Profile, fallback string) string {
	name := strings.TrimSpace(p.DisplayName())
	if name == "" {
		return fallback
	}
	return name
}

// Initials takes the first letter of the first two words, or the first two
// letters of a single word.
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "??"
	}
	parts := strings.Fields(name)
	if len(parts) >= 2 {
		a, b := []rune(parts[0]), []rune(parts[1])
		return strings.ToUpper(string(a[0]) + string(b[0]))
	}
	r := []rune(name)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// ColorFor picks a stable palette color from the id's UTF-16 code units.
func ColorFor(id string) string {
	sum := 0
	for _, u := range utf16.Encode([]rune(id)) {
		sum = (sum + int(u)) % 9973
	}
	return avatarPalette[sum%len(avatarPalette)]
}

// NormalizeStrand fixes the common HUMMS misspelling of HUMSS.
func NormalizeStrand(strand string) string {
	if strand == "HUMMS" {
		return "HUMSS"
	}
	return strand
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
