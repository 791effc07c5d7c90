package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/db/dbtest"
	"github.com/voclaria/voclaria/internal/model"
	"github.com/voclaria/voclaria/internal/service"
)

func newEnrollment(f *fixture) *service.EnrollmentService {
	return service.NewEnrollmentService(f.joinRequests, f.links, f.profiles, f.users, f.email, f.resolver, f.published)
}

func TestEnrollmentService_Submit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, f.db, "s1", "Ana", dbtest.Student)
	dbtest.Person(t, f.db, "s2", "Ben", dbtest.Student)
	svc := newEnrollment(f)

	_, err := svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "s2"})
	assert.ErrorIs(t, err, service.ErrTeacherNotFound)
	_, err = svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "ghost"})
	assert.ErrorIs(t, err, service.ErrTeacherNotFound)

	req, err := svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "t1", Strand: "HUMMS", GradeLevel: "Grade 12"})
	require.NoError(t, err)
	assert.Equal(t, model.JoinStatusPending, req.Status)
	require.NotNil(t, req.Strand)
	assert.Equal(t, "HUMSS", *req.Strand)
	assert.Nil(t, req.CodeEntered)

	_, err = svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "t1"})
	assert.ErrorIs(t, err, service.ErrJoinRequestExists)

	f.link(t, "t1", "s2", model.StudentStatusActive)
	_, err = svc.Submit(ctx, "s2", service.JoinRequestInput{TeacherID: "t1"})
	assert.ErrorIs(t, err, service.ErrAlreadyEnrolled)
}

func TestEnrollmentService_ApproveAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, f.db, "t2", "Other Teacher", dbtest.Teacher)
	dbtest.Person(t, f.db, "s1", "Ana Cruz", dbtest.Student)
	dbtest.Person(t, f.db, "s2", "Ben", dbtest.Student)
	svc := newEnrollment(f)

	r1, err := svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "t1", GradeLevel: "Grade 11"})
	require.NoError(t, err)
	r2, err := svc.Submit(ctx, "s2", service.JoinRequestInput{TeacherID: "t1"})
	require.NoError(t, err)
	foreign, err := svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "t2"})
	require.NoError(t, err)

	pending, err := svc.Pending(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Ana Cruz", pending[0].Name)
	assert.Equal(t, "AC", pending[0].Initials)

	_, err = svc.Approve(ctx, "t1", nil)
	assert.ErrorIs(t, err, service.ErrJoinRequestMissing)
	_, err = svc.Approve(ctx, "t1", []string{foreign.ID})
	assert.ErrorIs(t, err, service.ErrNoJoinRequests)

	n, err := svc.Approve(ctx, "t1", []string{r1.ID, foreign.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	links, err := f.links.ByTeacher(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "s1", links[0].StudentID)
	require.NotNil(t, links[0].GradeLevel)
	assert.Equal(t, "Grade 11", *links[0].GradeLevel)

	_, err = svc.Approve(ctx, "t1", []string{r1.ID})
	assert.ErrorIs(t, err, service.ErrNoJoinRequests)

	n, err = svc.Decline(ctx, "t1", []string{r1.ID, r2.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err = svc.Pending(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	still, err := svc.Pending(ctx, "t2")
	require.NoError(t, err)
	assert.Len(t, still, 1)
}

func TestEnrollmentService_ApproveConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbtest.Person(t, f.db, "t1", "Teacher", dbtest.Teacher)
	dbtest.Person(t, f.db, "s1", "Ana", dbtest.Student)
	svc := newEnrollment(f)

	req, err := svc.Submit(ctx, "s1", service.JoinRequestInput{TeacherID: "t1"})
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		counts [2]int
		errs   [2]error
	)
	for i := range counts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts[i], errs[i] = svc.Approve(ctx, "t1", []string{req.ID})
		}()
	}
	wg.Wait()

	approved := 0
	for i := range counts {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], service.ErrNoJoinRequests)
			continue
		}
		approved += counts[i]
	}
	assert.Equal(t, 1, approved)

	assert.Equal(t, 1, f.published.count(model.TableTeacherStudents))
}
