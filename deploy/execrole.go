// Package deploy provisions the AWS resources an agent deployment needs: an
// IAM execution role with the permissions the runtime requires, and the
// CloudWatch Logs resources observability writes to. Every operation is
// idempotent, so re-running a setup reports the existing resources instead of
// failing.
package deploy

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tomdee2/samples/errors"
)

const executionPolicyName = "AgentCorePolicy"

type iamAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
	ListRolePolicies(ctx context.Context, params *iam.ListRolePoliciesInput, optFns ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error)
	DeleteRolePolicy(ctx context.Context, params *iam.DeleteRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

type stsAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Provisioner creates and removes agent deployment resources.
type Provisioner struct {
	IAM    iamAPI
	STS    stsAPI
	Region string
	// PropagationWait pauses after role creation so IAM changes settle before
	// the role is used.
	PropagationWait time.Duration
}

// NewProvisioner builds a Provisioner on the default AWS credential chain.
func NewProvisioner(ctx context.Context, region string) (*Provisioner, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load AWS configuration")
	}
	return &Provisioner{
		IAM:             iam.NewFromConfig(cfg),
		STS:             sts.NewFromConfig(cfg),
		Region:          region,
		PropagationWait: 10 * time.Second,
	}, nil
}

// RoleInfo describes a provisioned execution role.
type RoleInfo struct {
	RoleName string
	Arn      string
}

// ExecutionRoleName derives the deterministic role name for an agent.
func ExecutionRoleName(agentName string) string {
	return fmt.Sprintf("agentcore-%s-role", agentName)
}

// CreateExecutionRole creates the execution role for an agent, or reports
// the existing one. The role trusts the agent runtime service scoped to the
// caller's account and attaches the inline runtime policy.
func (p *Provisioner) CreateExecutionRole(ctx context.Context, agentName string) (*RoleInfo, error) {
	identity, err := p.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve caller identity")
	}
	accountID := aws.ToString(identity.Account)
	roleName := ExecutionRoleName(agentName)

	created, err := p.IAM.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(roleName),
		AssumeRolePolicyDocument: aws.String(trustPolicy(accountID, p.Region)),
		Description:              aws.String(fmt.Sprintf("Execution role for agent %s", agentName)),
	})
	if err != nil {
		var exists *iamtypes.EntityAlreadyExistsException
		if !stderrors.As(err, &exists) {
			return nil, errors.Wrapf(err, "could not create role '%s'", roleName)
		}
		log.Printf("Role %s already exists, reusing it", roleName)
		existing, err := p.IAM.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(roleName)})
		if err != nil {
			return nil, errors.Wrapf(err, "could not look up existing role '%s'", roleName)
		}
		return &RoleInfo{RoleName: roleName, Arn: aws.ToString(existing.Role.Arn)}, nil
	}

	if _, err := p.IAM.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyName:     aws.String(executionPolicyName),
		PolicyDocument: aws.String(executionPolicy(accountID, p.Region)),
	}); err != nil {
		return nil, errors.Wrapf(err, "could not attach policy to role '%s'", roleName)
	}

	if p.PropagationWait > 0 {
		log.Printf("Waiting %s for role propagation", p.PropagationWait)
		select {
		case <-time.After(p.PropagationWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &RoleInfo{RoleName: roleName, Arn: aws.ToString(created.Role.Arn)}, nil
}

// DeleteExecutionRole removes an agent's execution role and its inline
// policies. A role that does not exist is not an error.
func (p *Provisioner) DeleteExecutionRole(ctx context.Context, agentName string) error {
	roleName := ExecutionRoleName(agentName)

	policies, err := p.IAM.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: aws.String(roleName)})
	if err != nil {
		if isNoSuchEntity(err) {
			log.Printf("Role %s does not exist, nothing to delete", roleName)
			return nil
		}
		return errors.Wrapf(err, "could not list policies for role '%s'", roleName)
	}
	for _, policyName := range policies.PolicyNames {
		if _, err := p.IAM.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(roleName),
			PolicyName: aws.String(policyName),
		}); err != nil && !isNoSuchEntity(err) {
			return errors.Wrapf(err, "could not delete policy '%s' from role '%s'", policyName, roleName)
		}
	}

	if _, err := p.IAM.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(roleName)}); err != nil && !isNoSuchEntity(err) {
		return errors.Wrapf(err, "could not delete role '%s'", roleName)
	}
	return nil
}

func isNoSuchEntity(err error) bool {
	var nse *iamtypes.NoSuchEntityException
	return stderrors.As(err, &nse)
}

// trustPolicy lets the agent runtime assume the role, scoped to the owning
// account.
func trustPolicy(accountID, region string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "bedrock-agentcore.amazonaws.com"},
      "Action": "sts:AssumeRole",
      "Condition": {
        "StringEquals": {"aws:SourceAccount": "%s"},
        "ArnLike": {"aws:SourceArn": "arn:aws:bedrock-agentcore:%s:%s:*"}
      }
    }
  ]
}`, accountID, region, accountID)
}

// executionPolicy grants the runtime permissions an agent needs: model
// invocation, image pulls, logging, tracing, metrics, workload identity,
// knowledge-base retrieval and the data stores the sample tools use.
func executionPolicy(accountID, region string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "BedrockModelInvocation",
      "Effect": "Allow",
      "Action": ["bedrock:InvokeModel", "bedrock:InvokeModelWithResponseStream"],
      "Resource": "*"
    },
    {
      "Sid": "ECRImageAccess",
      "Effect": "Allow",
      "Action": ["ecr:BatchGetImage", "ecr:GetDownloadUrlForLayer", "ecr:GetAuthorizationToken"],
      "Resource": "*"
    },
    {
      "Sid": "Logging",
      "Effect": "Allow",
      "Action": [
        "logs:CreateLogGroup",
        "logs:CreateLogStream",
        "logs:PutLogEvents",
        "logs:DescribeLogGroups",
        "logs:DescribeLogStreams"
      ],
      "Resource": "arn:aws:logs:%[1]s:%[2]s:log-group:*"
    },
    {
      "Sid": "Tracing",
      "Effect": "Allow",
      "Action": [
        "xray:PutTraceSegments",
        "xray:PutTelemetryRecords",
        "xray:GetSamplingRules",
        "xray:GetSamplingTargets"
      ],
      "Resource": "*"
    },
    {
      "Sid": "Metrics",
      "Effect": "Allow",
      "Action": "cloudwatch:PutMetricData",
      "Resource": "*",
      "Condition": {"StringEquals": {"cloudwatch:namespace": "bedrock-agentcore"}}
    },
    {
      "Sid": "WorkloadIdentity",
      "Effect": "Allow",
      "Action": [
        "bedrock-agentcore:GetWorkloadAccessToken",
        "bedrock-agentcore:GetWorkloadAccessTokenForJWT",
        "bedrock-agentcore:GetWorkloadAccessTokenForUserId"
      ],
      "Resource": "arn:aws:bedrock-agentcore:%[1]s:%[2]s:workload-identity-directory/*"
    },
    {
      "Sid": "KnowledgeBaseRetrieval",
      "Effect": "Allow",
      "Action": ["bedrock:Retrieve", "bedrock:RetrieveAndGenerate"],
      "Resource": "*"
    },
    {
      "Sid": "ToolDataStores",
      "Effect": "Allow",
      "Action": [
        "dynamodb:GetItem",
        "dynamodb:PutItem",
        "dynamodb:UpdateItem",
        "dynamodb:Query",
        "dynamodb:Scan",
        "ssm:GetParameter",
        "ssm:GetParameters"
      ],
      "Resource": "*"
    }
  ]
}`, region, accountID)
}
