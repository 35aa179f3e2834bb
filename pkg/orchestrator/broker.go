package orchestrator

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/analytical-platform/controlpanel/pkg/domain"
)

// SQSAPI is the subset of the SQS client the broker uses.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Delivery is one received broker payload awaiting acknowledgement.
type Delivery struct {
	Payload       string
	receiptHandle string
}

// Broker sends and receives framed task payloads over SQS queues
// named after domain.QueueName values.
type Broker struct {
	api SQSAPI

	mu        sync.Mutex
	queueURLs map[domain.QueueName]string
}

func NewBroker(api SQSAPI) *Broker {
	return &Broker{
		api:       api,
		queueURLs: map[domain.QueueName]string{},
	}
}

func NewBrokerFromConfig(cfg aws.Config) *Broker {
	return NewBroker(sqs.NewFromConfig(cfg))
}

func (b *Broker) queueURL(ctx context.Context, queue domain.QueueName) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if url, ok := b.queueURLs[queue]; ok {
		return url, nil
	}
	out, err := b.api.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(queue.String()),
	})
	if err != nil {
		return "", err
	}
	b.queueURLs[queue] = aws.ToString(out.QueueUrl)
	return b.queueURLs[queue], nil
}

// Send delivers one framed payload to a queue.
func (b *Broker) Send(ctx context.Context, queue domain.QueueName, payload string) error {
	url, err := b.queueURL(ctx, queue)
	if err != nil {
		return err
	}
	_, err = b.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(payload),
	})
	return err
}

// Receive long-polls a queue for up to 10 deliveries.
func (b *Broker) Receive(ctx context.Context, queue domain.QueueName) ([]Delivery, error) {
	url, err := b.queueURL(ctx, queue)
	if err != nil {
		return nil, err
	}
	out, err := b.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(url),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		deliveries = append(deliveries, Delivery{
			Payload:       aws.ToString(m.Body),
			receiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return deliveries, nil
}

// Ack deletes a delivery. An unacked delivery reappears after the
// visibility timeout, which is the whole retry mechanism.
func (b *Broker) Ack(ctx context.Context, queue domain.QueueName, delivery Delivery) error {
	url, err := b.queueURL(ctx, queue)
	if err != nil {
		return err
	}
	_, err = b.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(delivery.receiptHandle),
	})
	return err
}
