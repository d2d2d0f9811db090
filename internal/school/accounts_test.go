package school_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadence/internal/queue"
	"acadence/internal/school"
)

func TestCreateAccountAndLogin(t *testing.T) {
	e := newEnv(t)
	u, err := e.svc.CreateAccount(e.ctx, school.NewAccount{
		Name: " Tara ", Email: " Tara@Example.com ", Password: "secret1", Role: school.RoleTeacher, Verified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Tara", u.Name)
	assert.Equal(t, "tara@example.com", u.Email)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	got, err := e.svc.Login(e.ctx, "TARA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = e.svc.Login(e.ctx, "tara@example.com", "nope")
	assert.ErrorIs(t, err, school.ErrPermissionDenied)
	_, err = e.svc.Login(e.ctx, "who@example.com", "secret1")
	assert.ErrorIs(t, err, school.ErrPermissionDenied)

	_, err = e.svc.CreateAccount(e.ctx, school.NewAccount{
		Name: "Tara Two", Email: "tara@example.com", Password: "secret1", Role: school.RoleStudent,
	})
	assert.ErrorIs(t, err, school.ErrConflict)
}

func TestCreateAccountValidation(t *testing.T) {
	e := newEnv(t)
	cases := map[string]school.NewAccount{
		"short password": {Name: "A", Email: "a@example.com", Password: "123", Role: school.RoleStudent},
		"bad role":       {Name: "A", Email: "a@example.com", Password: "secret1", Role: "principal"},
		"missing name":   {Email: "a@example.com", Password: "secret1", Role: school.RoleStudent},
		"bad group":      {Name: "A", Email: "a@example.com", Password: "secret1", Role: school.RoleStudent, GroupName: ptr("g1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.CreateAccount(e.ctx, in)
			assert.ErrorIs(t, err, school.ErrValidation)
		})
	}
}

func TestUnverifiedStudentCannotLogin(t *testing.T) {
	e := newEnv(t)
	u, err := e.svc.CreateAccount(e.ctx, school.NewAccount{
		Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: school.RoleStudent,
	})
	require.NoError(t, err)

	_, err = e.svc.Login(e.ctx, "sam@example.com", "secret1")
	assert.ErrorIs(t, err, school.ErrPermissionDenied)

	require.NoError(t, e.svc.SetEmailVerified(e.ctx, u.ID, true))
	_, err = e.svc.Login(e.ctx, "sam@example.com", "secret1")
	assert.NoError(t, err)
}

func TestAuthenticateReadsStoredRole(t *testing.T) {
	e := newEnv(t)
	admin := e.account(school.RoleAdmin, "Ada")
	ann := e.account(school.RoleStudent, "Ann")

	got, err := e.svc.Authenticate(e.ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, school.RoleStudent, got.Role)

	_, err = e.svc.Authenticate(e.ctx, ann.ID, school.RoleAdmin, school.RoleTeacher)
	require.ErrorIs(t, err, school.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "admin or teacher")

	require.NoError(t, e.svc.DeleteUser(e.ctx, admin.ID, ann.ID))
	_, err = e.svc.Authenticate(e.ctx, ann.ID)
	assert.ErrorIs(t, err, school.ErrPermissionDenied)

	assert.ErrorIs(t, e.svc.DeleteUser(e.ctx, admin.ID, admin.ID), school.ErrValidation)
}

func TestGroupAssignment(t *testing.T) {
	e := newEnv(t)
	teacher := e.account(school.RoleTeacher, "Tara")
	ann := e.account(school.RoleStudent, "Ann")
	ben := e.account(school.RoleStudent, "Ben")

	require.NoError(t, e.svc.AssignGroup(e.ctx, ann.ID, "G7"))
	u, err := e.mem.GetUser(e.ctx, ann.ID)
	require.NoError(t, err)
	require.NotNil(t, u.GroupName)
	assert.Equal(t, "G7", *u.GroupName)

	require.NoError(t, e.svc.AssignGroup(e.ctx, ann.ID, ""))
	u, err = e.mem.GetUser(e.ctx, ann.ID)
	require.NoError(t, err)
	assert.Nil(t, u.GroupName)

	assert.ErrorIs(t, e.svc.AssignGroup(e.ctx, ann.ID, "7"), school.ErrValidation)
	assert.ErrorIs(t, e.svc.AssignGroup(e.ctx, teacher.ID, "G1"), school.ErrValidation)

	res, err := e.svc.AssignGroupBulk(e.ctx, "admin-1", []string{ann.ID, ben.ID, teacher.ID, "ghost"}, "G4")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ann.ID, ben.ID}, res.Succeeded)
	require.Len(t, res.Failed, 2)
	assert.Contains(t, e.events.kinds(), queue.KindGroupAssigned)

	_, err = e.svc.AssignGroupBulk(e.ctx, "admin-1", []string{ann.ID}, "Group4")
	assert.ErrorIs(t, err, school.ErrValidation)
}

func TestCreateClassValidation(t *testing.T) {
	e := newEnv(t)
	teacher := e.account(school.RoleTeacher, "Tara")
	ann := e.account(school.RoleStudent, "Ann")

	valid := school.NewClass{
		Name: "Biology", DayOfWeek: "thursday", StartTime: "13:45", DurationMinutes: 90,
		TeacherID: teacher.ID, GroupName: "G2", SubjectCode: ptr(" bio1 "),
	}
	c, err := e.svc.CreateClass(e.ctx, "admin-1", valid)
	require.NoError(t, err)
	assert.Equal(t, "Thursday", c.DayOfWeek)
	require.NotNil(t, c.SubjectCode)
	assert.Equal(t, "BIO1", *c.SubjectCode)

	mutate := map[string]func(*school.NewClass){
		"bad day":      func(n *school.NewClass) { n.DayOfWeek = "Funday" },
		"bad time":     func(n *school.NewClass) { n.StartTime = "25:00" },
		"zero length":  func(n *school.NewClass) { n.DurationMinutes = 0 },
		"bad group":    func(n *school.NewClass) { n.GroupName = "B2" },
		"student owns": func(n *school.NewClass) { n.TeacherID = ann.ID },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			in := valid
			fn(&in)
			_, err := e.svc.CreateClass(e.ctx, "admin-1", in)
			assert.ErrorIs(t, err, school.ErrValidation)
		})
	}

	classes, err := e.svc.ListClasses(e.ctx, school.ClassFilter{TeacherID: teacher.ID})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
}

func TestErrorKinds(t *testing.T) {
	err := school.NotFoundf("class %s not found", "c1")
	assert.Equal(t, school.KindNotFound, school.KindOf(err))
	assert.ErrorIs(t, err, school.ErrNotFound)
	assert.NotErrorIs(t, err, school.ErrConflict)
	assert.Equal(t, "not_found", school.KindNotFound.String())
	assert.Equal(t, school.Kind(0), school.KindOf(assert.AnError))
}
