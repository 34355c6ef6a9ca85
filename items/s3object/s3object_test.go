package s3object_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/items/s3object"
	"github.com/flowrt/flowrt/progress"
)

type fakeAPIError struct {
	code string
}

func (e *fakeAPIError) Error() string      { return e.code }
func (e *fakeAPIError) ErrorCode() string  { return e.code }
func (e *fakeAPIError) ErrorMessage() string { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

type fakeClient struct {
	headErr  error
	headOut  *s3.HeadObjectOutput
	putCalls int
	delCalls int
}

func (f *fakeClient) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return f.headOut, nil
}

func (f *fakeClient) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putCalls++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(context.Context, *s3.DeleteObjectInput, ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.delCalls++
	return &s3.DeleteObjectOutput{}, nil
}

func mustID(t *testing.T) ids.ItemId {
	t.Helper()
	id, err := ids.NewItemId("assets_logo")
	require.NoError(t, err)
	return id
}

func TestStateCurrentReportsAbsentOnNotFound(t *testing.T) {
	it := s3object.New(mustID(t))
	cli := &fakeClient{headErr: &fakeAPIError{code: "NotFound"}}
	st, err := it.StateCurrent(context.Background(), s3object.Params{Bucket: "b", Key: "k"}, s3object.Data{Client: cli})
	require.NoError(t, err)
	assert.False(t, st.Exists)
}

func TestStateCurrentReadsETagAndSize(t *testing.T) {
	it := s3object.New(mustID(t))
	etag := `"abc123"`
	size := int64(42)
	cli := &fakeClient{headOut: &s3.HeadObjectOutput{ETag: &etag, ContentLength: &size}}
	st, err := it.StateCurrent(context.Background(), s3object.Params{Bucket: "b", Key: "k"}, s3object.Data{Client: cli})
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, "abc123", st.ETag)
	assert.Equal(t, int64(42), st.Size)
}

func TestStateGoalHashesSourceFile(t *testing.T) {
	it := s3object.New(mustID(t))
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	st, err := it.StateGoal(context.Background(), s3object.Params{SourcePath: path}, s3object.Data{})
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.Equal(t, int64(5), st.Size)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", st.ETag)
}

func TestStateDiffDetectsETagMismatch(t *testing.T) {
	it := s3object.New(mustID(t))
	diff, err := it.StateDiff(context.Background(), s3object.PartialParams{}, s3object.Data{},
		s3object.State{Exists: true, ETag: "old"}, s3object.State{Exists: true, ETag: "new"})
	require.NoError(t, err)
	assert.True(t, diff.NeedsPut)
}

func TestStateDiffWantsDeleteWhenGoalAbsent(t *testing.T) {
	it := s3object.New(mustID(t))
	diff, err := it.StateDiff(context.Background(), s3object.PartialParams{}, s3object.Data{},
		s3object.State{Exists: true, ETag: "old"}, s3object.State{Exists: false})
	require.NoError(t, err)
	assert.True(t, diff.NeedsDelete)
}

func TestApplyPutsObject(t *testing.T) {
	it := s3object.New(mustID(t))
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	cli := &fakeClient{headOut: &s3.HeadObjectOutput{}}
	ch := make(chan progress.CmdProgressUpdate, 8)
	sender := progress.NewSender(context.Background(), mustID(t), ch)
	fnCtx := item.FnCtx{Ctx: context.Background(), Progress: sender}

	params := s3object.Params{Bucket: "b", Key: "k", SourcePath: path}
	st, err := it.Apply(fnCtx, params, s3object.Data{Client: cli},
		s3object.State{Exists: false}, s3object.State{Exists: true, Size: 5},
		s3object.Diff{NeedsPut: true})
	require.NoError(t, err)
	assert.Equal(t, 1, cli.putCalls)
	assert.True(t, st.Exists)
}

func TestApplyDeletesObject(t *testing.T) {
	it := s3object.New(mustID(t))
	cli := &fakeClient{}
	ch := make(chan progress.CmdProgressUpdate, 8)
	sender := progress.NewSender(context.Background(), mustID(t), ch)
	fnCtx := item.FnCtx{Ctx: context.Background(), Progress: sender}

	params := s3object.Params{Bucket: "b", Key: "k"}
	st, err := it.Apply(fnCtx, params, s3object.Data{Client: cli},
		s3object.State{Exists: true, ETag: "old"}, s3object.State{Exists: false},
		s3object.Diff{NeedsDelete: true})
	require.NoError(t, err)
	assert.Equal(t, 1, cli.delCalls)
	assert.False(t, st.Exists)
}
