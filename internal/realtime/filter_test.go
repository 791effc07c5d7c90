package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    Filter
		wantErr bool
	}{
		{name: "empty", expr: "", want: Filter{}},
		{name: "eq", expr: "teacher_id=eq.t1", want: Filter{Column: "teacher_id", Values: []string{"t1"}}},
		{name: "eq keeps dots in value", expr: "email=eq.a.b@c.d", want: Filter{Column: "email", Values: []string{"a.b@c.d"}}},
		{name: "in", expr: "student_id=in.(s1, s2,s3)", want: Filter{Column: "student_id", Values: []string{"s1", "s2", "s3"}}},
		{name: "in quoted", expr: `id=in.("a","b")`, want: Filter{Column: "id", Values: []string{"a", "b"}}},
		{name: "missing operator", expr: "id=t1", wantErr: true},
		{name: "unknown operator", expr: "id=gt.3", wantErr: true},
		{name: "in without parens", expr: "id=in.a,b", wantErr: true},
		{name: "empty in", expr: "id=in.()", wantErr: true},
		{name: "no column", expr: "=eq.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatch(t *testing.T) {
	eq, err := ParseFilter(Eq("teacher_id", "t1"))
	require.NoError(t, err)
	in, err := ParseFilter(In("student_id", "s1", "s2"))
	require.NoError(t, err)

	assert.True(t, Filter{}.Match(nil))
	assert.True(t, eq.Match(map[string]string{"teacher_id": "t1", "x": "y"}))
	assert.False(t, eq.Match(map[string]string{"teacher_id": "t2"}))
	assert.False(t, eq.Match(map[string]string{}))
	assert.True(t, in.Match(map[string]string{"student_id": "s2"}))
	assert.False(t, in.Match(map[string]string{"student_id": "s3"}))

	assert.Equal(t, "teacher_id=eq.t1", eq.String())
	assert.Equal(t, "student_id=in.(s1,s2)", in.String())
}
