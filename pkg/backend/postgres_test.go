package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voidshard/taskqueue/pkg/structs"
)

func TestToInsertSqlArgs(t *testing.T) {
	in := &structs.InsertRequest{
		Payload:    []byte(`{"tag": "PrintTask"}`),
		QueueName:  "q",
		GroupByTag: true,
		Tag:        "PrintTask",
	}

	qstr, result := toInsertSqlArgs("id", "q", in)

	assert.Equal(t, "INSERT INTO tasks (id, queue, tag, payload) VALUES ($1, $2, $3, $4);", qstr)
	assert.Equal(t, []interface{}{"id", "q", "PrintTask", in.Payload}, result)
}

func TestToLeaseSqlArgs(t *testing.T) {
	cases := []struct {
		Name       string
		Given      *structs.LeaseRequest
		ExpectSql  string
		ExpectArgs []interface{}
	}{
		{
			Name:  "NoTag",
			Given: &structs.LeaseRequest{NumTasks: 2, Seconds: 30},
			ExpectSql: "UPDATE tasks SET lease_until=now() + make_interval(secs => $2), leased_count=leased_count + 1 " +
				"WHERE id IN (SELECT id FROM tasks WHERE queue=$1 AND lease_until <= now() ORDER BY created_at LIMIT $3 FOR UPDATE SKIP LOCKED) " +
				"RETURNING id, tag, payload;",
			ExpectArgs: []interface{}{"q", float64(30), 2},
		},
		{
			Name:  "Tag",
			Given: &structs.LeaseRequest{NumTasks: 1, Seconds: 600, GroupByTag: true, Tag: "PrintTask"},
			ExpectSql: "UPDATE tasks SET lease_until=now() + make_interval(secs => $2), leased_count=leased_count + 1 " +
				"WHERE id IN (SELECT id FROM tasks WHERE queue=$1 AND lease_until <= now() AND tag=$4 ORDER BY created_at LIMIT $3 FOR UPDATE SKIP LOCKED) " +
				"RETURNING id, tag, payload;",
			ExpectArgs: []interface{}{"q", float64(600), 1, "PrintTask"},
		},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			qstr, args := toLeaseSqlArgs("q", c.Given)

			assert.Equal(t, c.ExpectSql, qstr)
			assert.Equal(t, c.ExpectArgs, args)
		})
	}
}

func TestToSetLeaseSqlArgs(t *testing.T) {
	qstr, args := toSetLeaseSqlArgs("q", "id", 0)

	assert.Equal(t, "UPDATE tasks SET lease_until=now() + make_interval(secs => $3) WHERE id=$1 AND queue=$2;", qstr)
	assert.Equal(t, []interface{}{"id", "q", float64(0)}, args)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")

	assert.Nil(t, err)
	assert.Len(t, entries, 2)
}
