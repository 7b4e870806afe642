package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	api := &fakeSQS{}
	client := NewSQSClientWithAPI(api, "https://sqs.example/queue")
	msg := NewMessage("analysis-1", "req-1", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("expected one send, got %d", len(api.inputs))
	}
	in := api.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.example/queue" {
		t.Fatalf("unexpected queue url %s", aws.ToString(in.QueueUrl))
	}
	decoded, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil || decoded != msg {
		t.Fatalf("unexpected body %q (%v)", aws.ToString(in.MessageBody), err)
	}
	if aws.ToString(in.MessageAttributes["requestId"].StringValue) != "req-1" {
		t.Fatalf("expected request id attribute, got %+v", in.MessageAttributes)
	}
}

func TestSQSClientSendError(t *testing.T) {
	api := &fakeSQS{err: errors.New("throttled")}
	client := NewSQSClientWithAPI(api, "q")

	if err := client.Send(context.Background(), Message{AnalysisID: "a"}); err == nil {
		t.Fatalf("expected error")
	}
	if api.inputs[0].MessageAttributes != nil {
		t.Fatalf("expected no attributes without request id")
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), "us-east-1", " "); err == nil {
		t.Fatalf("expected error for empty queue url")
	}
}
