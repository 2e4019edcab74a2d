package deploy

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tomdee2/samples/errors"
)

const defaultLogStreamName = "default"

type cloudwatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// Observability provisions the CloudWatch Logs resources agent telemetry
// writes to.
type Observability struct {
	Logs cloudwatchLogsAPI
	STS  stsAPI
}

// NewObservability builds an Observability on the default AWS credential
// chain.
func NewObservability(ctx context.Context, region string) (*Observability, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.Wrapf(err, "could not load AWS configuration")
	}
	return &Observability{
		Logs: cloudwatchlogs.NewFromConfig(cfg),
		STS:  sts.NewFromConfig(cfg),
	}, nil
}

// LogGroupName derives the log group an agent service writes to.
func LogGroupName(serviceName string) string {
	return fmt.Sprintf("agents/%s-logs", serviceName)
}

// LogDestination describes a provisioned log group and stream.
type LogDestination struct {
	LogGroup  string
	LogStream string
}

// Setup ensures the service's log group and default stream exist, verifying
// the credentials first. Resources that already exist are reported and
// reused.
func (o *Observability) Setup(ctx context.Context, serviceName string) (*LogDestination, error) {
	if o.STS != nil {
		identity, err := o.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			return nil, errors.Wrapf(err, "AWS credentials are not usable")
		}
		log.Printf("Configuring observability as %s", aws.ToString(identity.Arn))
	}

	dest := &LogDestination{
		LogGroup:  LogGroupName(serviceName),
		LogStream: defaultLogStreamName,
	}
	if err := o.EnsureLogGroup(ctx, dest.LogGroup); err != nil {
		return nil, err
	}
	if err := o.EnsureLogStream(ctx, dest.LogGroup, dest.LogStream); err != nil {
		return nil, err
	}
	return dest, nil
}

// EnsureLogGroup creates a log group, treating an existing one as success.
func (o *Observability) EnsureLogGroup(ctx context.Context, name string) error {
	_, err := o.Logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(name),
	})
	if err != nil {
		if isAlreadyExists(err) {
			log.Printf("Log group %s already exists", name)
			return nil
		}
		return errors.Wrapf(err, "could not create log group '%s'", name)
	}
	log.Printf("Created log group %s", name)
	return nil
}

// EnsureLogStream creates a log stream, treating an existing one as success.
func (o *Observability) EnsureLogStream(ctx context.Context, group, stream string) error {
	_, err := o.Logs.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		if isAlreadyExists(err) {
			log.Printf("Log stream %s/%s already exists", group, stream)
			return nil
		}
		return errors.Wrapf(err, "could not create log stream '%s' in '%s'", stream, group)
	}
	log.Printf("Created log stream %s/%s", group, stream)
	return nil
}

func isAlreadyExists(err error) bool {
	var exists *cwltypes.ResourceAlreadyExistsException
	return stderrors.As(err, &exists)
}
