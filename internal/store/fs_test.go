package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"obbycal/internal/record"
	"obbycal/internal/store"
)

func newStore(t *testing.T) *store.FS {
	t.Helper()
	st, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	return st
}

func Test_FS_Create_Get_Round_Trip(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	content := []byte("---\ntitle: A\nstart: 2024-01-01\n---\n")

	require.NoError(t, st.Create("cal/A-2024-01-01.md", content))

	got, err := st.Get("cal/A-2024-01-01.md")
	require.NoError(t, err)
	require.Equal(t, content, got)
	require.True(t, st.Exists("cal/A-2024-01-01.md"))
}

func Test_FS_Create_Rejects_Occupied_Keys(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.Create("cal/A.md", []byte("one")))
	require.ErrorIs(t, st.Create("cal/A.md", []byte("two")), store.ErrKeyExists)

	// The original content is untouched.
	got, err := st.Get("cal/A.md")
	require.NoError(t, err)
	require.Equal(t, []byte("one"), got)
}

func Test_FS_Get_Missing_Key_Is_RecordNotFound(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	_, err := st.Get("cal/nope.md")
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func Test_FS_Modify_Requires_Existing_Key(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.ErrorIs(t, st.Modify("cal/nope.md", []byte("x")), store.ErrRecordNotFound)

	require.NoError(t, st.Create("cal/a.md", []byte("v1")))
	require.NoError(t, st.Modify("cal/a.md", []byte("v2")))
	got, err := st.Get("cal/a.md")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func Test_FS_List_Returns_Sorted_Record_Keys_Only(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.Create("cal/b.md", []byte("b")))
	require.NoError(t, st.Create("cal/a.md", []byte("a")))
	require.NoError(t, st.Create("cal/todos/t.md", []byte("t")))
	require.NoError(t, st.Create("other/x.md", []byte("x")))

	// A stray non-record file is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(st.Root(), "cal", "notes.txt"), []byte("n"), 0o600))

	keys, err := st.List("cal")
	require.NoError(t, err)
	require.Equal(t, []string{"cal/a.md", "cal/b.md", "cal/todos/t.md"}, keys)
}

func Test_FS_List_Missing_Folder_Is_Empty_Not_Error(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	keys, err := st.List("does/not/exist")
	require.NoError(t, err)
	require.Empty(t, keys)
}

func Test_FS_Rename_Moves_And_Guards_The_Target(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.Create("cal/a.md", []byte("a")))
	require.NoError(t, st.Create("cal/taken.md", []byte("t")))

	require.ErrorIs(t, st.Rename("cal/a.md", "cal/taken.md"), store.ErrKeyExists)
	require.True(t, st.Exists("cal/a.md"), "failed rename leaves the source in place")

	require.NoError(t, st.Rename("cal/a.md", "work/moved.md"))
	require.False(t, st.Exists("cal/a.md"))
	got, err := st.Get("work/moved.md")
	require.NoError(t, err)
	require.Equal(t, []byte("a"), got)

	require.ErrorIs(t, st.Rename("cal/gone.md", "cal/elsewhere.md"), store.ErrRecordNotFound)
}

func Test_FS_Delete_Removes_The_Record(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.Create("cal/a.md", []byte("a")))
	require.NoError(t, st.Delete("cal/a.md"))
	require.False(t, st.Exists("cal/a.md"))
	require.ErrorIs(t, st.Delete("cal/a.md"), store.ErrRecordNotFound)
}

func Test_FS_EnsureFolder_Flags_Non_Folder_Paths(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.EnsureFolder("cal/todos"))
	require.NoError(t, st.EnsureFolder("cal/todos"), "idempotent")

	require.NoError(t, st.Create("cal/file.md", []byte("f")))
	require.ErrorIs(t, st.EnsureFolder("cal/file.md"), store.ErrPathConflict)
}

func Test_FS_Keys_Cannot_Escape_The_Root(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	require.NoError(t, st.Create("../escape.md", []byte("x")))

	// The traversal segment is cleaned away, keeping the file under root.
	require.True(t, st.Exists("escape.md"))
	_, err := os.Lstat(filepath.Join(filepath.Dir(st.Root()), "escape.md"))
	require.Error(t, err)
}

func Test_PatchFields_Preserves_The_Body(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	doc := "---\ntitle: Laundry\ndue: 2024-01-10\ncompleted: false\n---\n\nSort by color first.\n"
	require.NoError(t, st.Create("home/todos/Laundry-2024-01-10.md", []byte(doc)))

	err := store.PatchFields(st, "home/todos/Laundry-2024-01-10.md", func(rec *record.Record) error {
		rec.Task.Completion = record.SimpleCompletion(true)
		return nil
	})
	require.NoError(t, err)

	data, err := st.Get("home/todos/Laundry-2024-01-10.md")
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "completed: true")
	require.Contains(t, text, "Sort by color first.")
}

func Test_PatchFields_Missing_Record_Propagates(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	err := store.PatchFields(st, "home/todos/nope.md", func(*record.Record) error { return nil })
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}
