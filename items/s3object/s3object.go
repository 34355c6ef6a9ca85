// Package s3object implements a reference Item whose managed resource is
// one S3 object, grounded on the teacher's storage.S3Client interface
// (storage/s3_interface.go) and storage.CalculateMD5 (storage/s3aws.go) —
// S3's ETag is the object's MD5 hex digest for a non-multipart upload, so
// comparing ETag to a local file's MD5 is exactly the drift check
// storage.HetznerSyncToRemote already performs before re-uploading.
package s3object

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/item"
	"github.com/flowrt/flowrt/progress"
	"github.com/flowrt/flowrt/resources"
	"github.com/flowrt/flowrt/resources/ts"
)

// Client is the subset of the S3 SDK this Item drives, narrowed from
// storage.S3Client to the object-level operations one object's lifecycle
// needs.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Params is the fully-resolved desired configuration of one S3 object.
type Params struct {
	Bucket     string
	Key        string
	SourcePath string // local file uploaded to reconcile
}

// PartialParams is Params with fields optionally known.
type PartialParams struct {
	Bucket *string
	Key    *string
}

// State is the observable existence/content-hash of the object.
type State struct {
	Exists bool
	ETag   string
	Size   int64
}

// Diff reports whether the object must be (re)uploaded or removed.
type Diff struct {
	NeedsPut    bool
	NeedsDelete bool
}

// Data is the S3 client handle, inserted into Resources by WithClient
// (Setup inserts nothing).
type Data struct {
	Client Client
}

// Item manages one S3 object's presence and content.
type Item struct {
	id ids.ItemId
}

var _ item.Item[Params, PartialParams, State, Diff, Data] = (*Item)(nil)

// New returns an s3object Item identified by id.
func New(id ids.ItemId) *Item { return &Item{id: id} }

func (i *Item) ID() ids.ItemId { return i.id }

// Setup inserts no collaborator of its own: unlike dockercontainer's local
// socket, an s3.Client needs credentials and a region the Resources
// lifecycle has no opinion on, so the caller builds one via
// config.LoadDefaultConfig (the entry point every storage/s3aws.go
// function in the teacher uses) and inserts it with WithClient before
// running a FlowGraph that includes an s3object Item.
func (i *Item) Setup(r *resources.Resources[ts.SetUp]) error {
	return nil
}

// WithClient inserts cli as the Data collaborator s3object Items read.
func WithClient(r *resources.Resources[ts.SetUp], cli Client) {
	resources.Insert[ts.SetUp](r, Data{Client: cli})
}

func (i *Item) StateExample(params Params, data Data) State {
	return State{Exists: true, ETag: "d41d8cd98f00b204e9800998ecf8427e", Size: 0}
}

func (i *Item) TryStateCurrent(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	if partial.Bucket == nil || partial.Key == nil {
		return State{}, false, nil
	}
	st, err := i.head(ctx, *partial.Bucket, *partial.Key, data)
	return st, true, err
}

func (i *Item) StateCurrent(ctx context.Context, params Params, data Data) (State, error) {
	return i.head(ctx, params.Bucket, params.Key, data)
}

func (i *Item) head(ctx context.Context, bucket, key string, data Data) (State, error) {
	out, err := data.Client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return State{Exists: false}, nil
		}
		return State{}, fmt.Errorf("s3object: heading s3://%s/%s: %w", bucket, key, err)
	}
	etag := ""
	if out.ETag != nil {
		etag = trimQuotes(*out.ETag)
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return State{Exists: true, ETag: etag, Size: size}, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (i *Item) TryStateGoal(ctx context.Context, partial PartialParams, data Data) (State, bool, error) {
	return State{}, false, nil
}

func (i *Item) StateGoal(ctx context.Context, params Params, data Data) (State, error) {
	md5hex, size, err := fileMD5(params.SourcePath)
	if err != nil {
		return State{}, err
	}
	return State{Exists: true, ETag: md5hex, Size: size}, nil
}

func fileMD5(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("s3object: opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("s3object: hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

func (i *Item) StateDiff(ctx context.Context, partial PartialParams, data Data, stateA, stateB State) (Diff, error) {
	if !stateB.Exists {
		return Diff{NeedsDelete: stateA.Exists}, nil
	}
	if !stateA.Exists || stateA.ETag != stateB.ETag {
		return Diff{NeedsPut: true}, nil
	}
	return Diff{}, nil
}

func (i *Item) StateClean(ctx context.Context, partial PartialParams, data Data) (State, error) {
	return State{Exists: false}, nil
}

func (i *Item) ApplyCheck(params Params, data Data, stateCurrent, stateTarget State, diff Diff) (item.ApplyCheck, error) {
	if !diff.NeedsPut && !diff.NeedsDelete {
		return item.ApplyCheck{Kind: item.ExecNotRequired}, nil
	}
	limit := &progress.Limit{Kind: progress.LimitBytes, N: uint64(stateTarget.Size)}
	return item.ApplyCheck{Kind: item.ExecRequired, ProgressLimit: limit}, nil
}

func (i *Item) ApplyDry(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("would upload s3://%s/%s", params.Bucket, params.Key)})
	return stateTarget, nil
}

func (i *Item) Apply(fnCtx item.FnCtx, params Params, data Data, stateCurrent, stateTarget State, diff Diff) (State, error) {
	if diff.NeedsDelete {
		fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: "deleting object"})
		if _, err := data.Client.DeleteObject(fnCtx.Ctx, &s3.DeleteObjectInput{Bucket: aws.String(params.Bucket), Key: aws.String(params.Key)}); err != nil {
			return State{}, fmt.Errorf("s3object: deleting s3://%s/%s: %w", params.Bucket, params.Key, err)
		}
		fnCtx.Progress.Inc(1, progress.MsgUpdate{})
		return State{Exists: false}, nil
	}

	f, err := os.Open(params.SourcePath)
	if err != nil {
		return State{}, fmt.Errorf("s3object: opening %s: %w", params.SourcePath, err)
	}
	defer f.Close()

	fnCtx.Progress.Tick(progress.MsgUpdate{Kind: progress.MsgSet, Message: fmt.Sprintf("uploading s3://%s/%s", params.Bucket, params.Key)})
	_, err = data.Client.PutObject(fnCtx.Ctx, &s3.PutObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
		Body:   f,
	})
	if err != nil {
		return State{}, fmt.Errorf("s3object: uploading s3://%s/%s: %w", params.Bucket, params.Key, err)
	}
	fnCtx.Progress.Inc(uint64(stateTarget.Size), progress.MsgUpdate{})
	return i.head(fnCtx.Ctx, params.Bucket, params.Key, data)
}

func (i *Item) Interactions(params Params, data Data) []item.ItemInteraction {
	return []item.ItemInteraction{{Kind: item.InteractionHost, Location: fmt.Sprintf("s3://%s/%s", params.Bucket, params.Key)}}
}
