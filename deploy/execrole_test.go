package deploy

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	existingRoles map[string]string // name -> arn
	inlinePolicy  map[string][]string

	createdRoles    []string
	attachedPolices []string
	deletedRoles    []string
	deletedPolicies []string
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		existingRoles: make(map[string]string),
		inlinePolicy:  make(map[string][]string),
	}
}

func (f *fakeIAM) CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	name := aws.ToString(params.RoleName)
	if _, ok := f.existingRoles[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{}
	}
	arn := "arn:aws:iam::123456789012:role/" + name
	f.existingRoles[name] = arn
	f.createdRoles = append(f.createdRoles, name)
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	name := aws.ToString(params.RoleName)
	arn, ok := f.existingRoles[name]
	if !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	return &iam.GetRoleOutput{Role: &iamtypes.Role{Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	name := aws.ToString(params.RoleName)
	f.inlinePolicy[name] = append(f.inlinePolicy[name], aws.ToString(params.PolicyName))
	f.attachedPolices = append(f.attachedPolices, aws.ToString(params.PolicyName))
	return &iam.PutRolePolicyOutput{}, nil
}

func (f *fakeIAM) ListRolePolicies(ctx context.Context, params *iam.ListRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error) {
	name := aws.ToString(params.RoleName)
	if _, ok := f.existingRoles[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	return &iam.ListRolePoliciesOutput{PolicyNames: f.inlinePolicy[name]}, nil
}

func (f *fakeIAM) DeleteRolePolicy(ctx context.Context, params *iam.DeleteRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	f.deletedPolicies = append(f.deletedPolicies, aws.ToString(params.PolicyName))
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (f *fakeIAM) DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	name := aws.ToString(params.RoleName)
	if _, ok := f.existingRoles[name]; !ok {
		return nil, &iamtypes.NoSuchEntityException{}
	}
	delete(f.existingRoles, name)
	f.deletedRoles = append(f.deletedRoles, name)
	return &iam.DeleteRoleOutput{}, nil
}

type fakeSTS struct{}

func (fakeSTS) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/tester"),
	}, nil
}

func newTestProvisioner(iamClient *fakeIAM) *Provisioner {
	return &Provisioner{IAM: iamClient, STS: fakeSTS{}, Region: "us-west-2"}
}

func TestExecutionRoleName(t *testing.T) {
	assert.Equal(t, "agentcore-myagent-role", ExecutionRoleName("myagent"))
}

func TestCreateExecutionRole(t *testing.T) {
	iamClient := newFakeIAM()
	p := newTestProvisioner(iamClient)

	info, err := p.CreateExecutionRole(context.Background(), "myagent")
	require.NoError(t, err)
	assert.Equal(t, "agentcore-myagent-role", info.RoleName)
	assert.Equal(t, "arn:aws:iam::123456789012:role/agentcore-myagent-role", info.Arn)
	assert.Equal(t, []string{executionPolicyName}, iamClient.attachedPolices)
}

func TestCreateExecutionRoleIsIdempotent(t *testing.T) {
	iamClient := newFakeIAM()
	p := newTestProvisioner(iamClient)

	first, err := p.CreateExecutionRole(context.Background(), "myagent")
	require.NoError(t, err)

	second, err := p.CreateExecutionRole(context.Background(), "myagent")
	require.NoError(t, err)
	assert.Equal(t, first.Arn, second.Arn)
	assert.Len(t, iamClient.createdRoles, 1)
}

func TestDeleteExecutionRole(t *testing.T) {
	iamClient := newFakeIAM()
	p := newTestProvisioner(iamClient)

	_, err := p.CreateExecutionRole(context.Background(), "myagent")
	require.NoError(t, err)

	require.NoError(t, p.DeleteExecutionRole(context.Background(), "myagent"))
	assert.Equal(t, []string{executionPolicyName}, iamClient.deletedPolicies)
	assert.Equal(t, []string{"agentcore-myagent-role"}, iamClient.deletedRoles)

	// Deleting again is not an error.
	require.NoError(t, p.DeleteExecutionRole(context.Background(), "myagent"))
}
