package restore

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3archiver/errors"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name       string
		value      *string
		wantStatus MarkerStatus
		wantExpiry time.Time
		wantErr    bool
	}{
		{name: "absent", value: nil, wantStatus: MarkerAbsent},
		{name: "blank", value: aws.String("  "), wantStatus: MarkerAbsent},
		{name: "ongoing", value: aws.String(`ongoing-request="true"`), wantStatus: MarkerInProgress},
		{
			name:       "complete with expiry",
			value:      aws.String(`ongoing-request="false", expiry-date="Fri, 21 Dec 2012 00:00:00 GMT"`),
			wantStatus: MarkerComplete,
			wantExpiry: time.Date(2012, 12, 21, 0, 0, 0, 0, time.UTC),
		},
		{name: "complete without expiry", value: aws.String(`ongoing-request="false"`), wantStatus: MarkerComplete},
		{name: "garbage", value: aws.String("restoring soon"), wantErr: true},
		{name: "unquoted", value: aws.String("ongoing-request=true"), wantErr: true},
		{
			name:    "bad expiry",
			value:   aws.String(`ongoing-request="false", expiry-date="tomorrow"`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker, err := ParseMarker(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidRestoreMarker)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, marker.Status)
			assert.True(t, tt.wantExpiry.Equal(marker.Expiry), "expiry %v, want %v", marker.Expiry, tt.wantExpiry)
		})
	}
}
