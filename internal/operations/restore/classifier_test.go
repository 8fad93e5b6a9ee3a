package restore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/archivetypes"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/internal/testutil"
)

var defaultConfig = ClassifierConfig{Days: 7, Tier: archivetypes.RestoreTierStandard}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name         string
		object       testutil.FakeObject
		wantState    archivetypes.RestorationState
		wantRequests int
	}{
		{
			name:      "standard object",
			object:    testutil.FakeObject{Key: "file2.csv"},
			wantState: archivetypes.StateNotApplicable,
		},
		{
			name:      "instant retrieval is readable",
			object:    testutil.FakeObject{Key: "ir.csv", StorageClass: archivetypes.StorageClassGlacierIR},
			wantState: archivetypes.StateNotApplicable,
		},
		{
			name:         "deep archive without marker",
			object:       testutil.FakeObject{Key: "file1.csv", StorageClass: archivetypes.StorageClassDeepArchive},
			wantState:    archivetypes.StateRequested,
			wantRequests: 1,
		},
		{
			name:         "glacier without marker",
			object:       testutil.FakeObject{Key: "g.csv", StorageClass: archivetypes.StorageClassGlacier},
			wantState:    archivetypes.StateRequested,
			wantRequests: 1,
		},
		{
			name: "restore ongoing",
			object: testutil.FakeObject{
				Key:          "ongoing.csv",
				StorageClass: archivetypes.StorageClassGlacier,
				Restore:      testutil.RestoreOngoing,
			},
			wantState: archivetypes.StateInProgress,
		},
		{
			name: "restore complete",
			object: testutil.FakeObject{
				Key:          "done.csv",
				StorageClass: archivetypes.StorageClassDeepArchive,
				Restore:      testutil.RestoreComplete,
			},
			wantState: archivetypes.StateReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend("src")
			backend.AddObject("src", tt.object)
			progress := &testutil.MockProgress{}

			c := NewClassifier(backend, defaultConfig, progress, nil)
			state, err := c.Classify(context.Background(), "src", tt.object.Key)

			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantRequests, backend.RestoreRequests("src", tt.object.Key))
			assert.Equal(t, tt.wantRequests, c.Requested())
			assert.Equal(t, []archivetypes.RestorationState{tt.wantState}, progress.StatesFor(tt.object.Key))
		})
	}
}

func TestClassifier_RestoreRequestParameters(t *testing.T) {
	var got *s3.RestoreObjectInput
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{StorageClass: awstypes.StorageClassDeepArchive}, nil
		},
		RestoreObjectFunc: func(
			_ context.Context,
			input *s3.RestoreObjectInput,
			_ ...func(*s3.Options),
		) (*s3.RestoreObjectOutput, error) {
			got = input
			return &s3.RestoreObjectOutput{}, nil
		},
	}

	c := NewClassifier(mock, ClassifierConfig{Days: 3, Tier: archivetypes.RestoreTierBulk}, nil, nil)
	state, err := c.Classify(context.Background(), "src", "file1.csv")
	require.NoError(t, err)
	assert.Equal(t, archivetypes.StateRequested, state)

	require.NotNil(t, got)
	assert.Equal(t, "src", aws.ToString(got.Bucket))
	assert.Equal(t, "file1.csv", aws.ToString(got.Key))
	require.NotNil(t, got.RestoreRequest)
	assert.Equal(t, int32(3), aws.ToInt32(got.RestoreRequest.Days))
	require.NotNil(t, got.RestoreRequest.GlacierJobParameters)
	assert.Equal(t, awstypes.TierBulk, got.RestoreRequest.GlacierJobParameters.Tier)
}

func TestClassifier_RequestsAtMostOnce(t *testing.T) {
	restores := 0
	mock := &testutil.MockS3Client{
		// The marker never shows up, as on a lagging backend
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{StorageClass: awstypes.StorageClassGlacier}, nil
		},
		RestoreObjectFunc: func(context.Context, *s3.RestoreObjectInput, ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
			restores++
			return &s3.RestoreObjectOutput{}, nil
		},
	}

	c := NewClassifier(mock, defaultConfig, nil, nil)
	ctx := context.Background()

	states := make([]archivetypes.RestorationState, 0, 3)
	for i := 0; i < 3; i++ {
		state, err := c.Classify(ctx, "src", "file1.csv")
		require.NoError(t, err)
		states = append(states, state)
	}

	assert.Equal(t, 1, restores)
	assert.Equal(t, []archivetypes.RestorationState{
		archivetypes.StateRequested,
		archivetypes.StateInProgress,
		archivetypes.StateInProgress,
	}, states)
}

func TestClassifier_RestoreAlreadyInProgress(t *testing.T) {
	mock := &testutil.MockS3Client{
		HeadObjectFunc: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return &s3.HeadObjectOutput{StorageClass: awstypes.StorageClassGlacier}, nil
		},
		RestoreObjectFunc: func(context.Context, *s3.RestoreObjectInput, ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "RestoreAlreadyInProgress"}
		},
	}

	state, err := NewClassifier(mock, defaultConfig, nil, nil).Classify(context.Background(), "src", "file1.csv")
	require.NoError(t, err)
	assert.Equal(t, archivetypes.StateInProgress, state)
}

func TestClassifier_Errors(t *testing.T) {
	tests := []struct {
		name    string
		head    func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
		restore func(context.Context, *s3.RestoreObjectInput, ...func(*s3.Options)) (*s3.RestoreObjectOutput, error)
		wantErr error
		wantOp  string
	}{
		{
			name: "object vanished",
			head: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return nil, &awstypes.NotFound{}
			},
			wantErr: errors.ErrObjectNotFound,
			wantOp:  "classify",
		},
		{
			name: "malformed marker",
			head: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return &s3.HeadObjectOutput{
					StorageClass: awstypes.StorageClassGlacier,
					Restore:      aws.String("pending"),
				}, nil
			},
			wantErr: errors.ErrInvalidRestoreMarker,
			wantOp:  "classify",
		},
		{
			name: "restore denied",
			head: func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				return &s3.HeadObjectOutput{StorageClass: awstypes.StorageClassDeepArchive}, nil
			},
			restore: func(context.Context, *s3.RestoreObjectInput, ...func(*s3.Options)) (*s3.RestoreObjectOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "AccessDenied"}
			},
			wantErr: errors.ErrAccessDenied,
			wantOp:  "restore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{HeadObjectFunc: tt.head, RestoreObjectFunc: tt.restore}
			progress := &testutil.MockProgress{}

			_, err := NewClassifier(mock, defaultConfig, progress, nil).Classify(context.Background(), "src", "file1.csv")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var archErr *errors.Error
			require.ErrorAs(t, err, &archErr)
			assert.Equal(t, tt.wantOp, archErr.Op)
			assert.Equal(t, "src", archErr.Bucket)
			assert.Equal(t, "file1.csv", archErr.Key)
			assert.Empty(t, progress.Classifications, "failed classifications are not reported")
		})
	}
}
