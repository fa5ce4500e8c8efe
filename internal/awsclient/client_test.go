package awsclient

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ujanalytics/costctl/internal/errors"
)

type mockSTS struct {
	fn func(ctx context.Context, params *sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error)
}

func (m *mockSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.fn(ctx, params)
}

func TestVerifyIdentity_ReturnsCallerARN(t *testing.T) {
	clients := &Clients{STS: &mockSTS{
		fn: func(_ context.Context, _ *sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{
				Account: aws.String("123456789012"),
				Arn:     aws.String("arn:aws:iam::123456789012:user/analytics"),
			}, nil
		},
	}}

	arn, err := clients.VerifyIdentity(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::123456789012:user/analytics", arn)
}

func TestVerifyIdentity_FailureCarriesGuidance(t *testing.T) {
	clients := &Clients{STS: &mockSTS{
		fn: func(_ context.Context, _ *sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error) {
			return nil, errors.New(errors.TypePermission, "token expired")
		},
	}}

	_, err := clients.VerifyIdentity(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.TypePermission, errors.TypeOf(err))

	var typed *errors.Error
	require.ErrorAs(t, err, &typed)
	assert.NotEmpty(t, typed.Solutions)
}

func TestVerifyIdentity_IncompleteIdentityFails(t *testing.T) {
	clients := &Clients{STS: &mockSTS{
		fn: func(_ context.Context, _ *sts.GetCallerIdentityInput) (*sts.GetCallerIdentityOutput, error) {
			return &sts.GetCallerIdentityOutput{}, nil
		},
	}}

	_, err := clients.VerifyIdentity(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.TypePermission, errors.TypeOf(err))
}
