package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafka "github.com/segmentio/kafka-go"

	appconfig "flightlooker/config"
	"flightlooker/logger"
	"flightlooker/models"
)

// DealEvent is the message published for each ranked country. Downstream
// consumers (fare alerting, history tracking) key on route and country.
type DealEvent struct {
	RunID            string    `json:"run_id"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	TravelDate       string    `json:"travel_date"`
	Rank             int       `json:"rank"`
	Country          string    `json:"country"`
	Price            string    `json:"price"`
	Currency         string    `json:"currency"`
	OriginalPrice    string    `json:"original_price"`
	OriginalCurrency string    `json:"original_currency"`
	Airline          string    `json:"airline,omitempty"`
	Stops            int       `json:"stops"`
	PublishedAt      time.Time `json:"published_at"`
}

// KafkaPublisher sends a run's ranked deals to a topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	log    *logger.Log
}

func NewKafkaPublisher(cfg *appconfig.Config) (*KafkaPublisher, error) {
	kcfg := cfg.Storage.Kafka
	if len(kcfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(kcfg.Brokers...),
		Topic:    kcfg.Topic,
		Balancer: &kafka.Hash{},
	}

	return &KafkaPublisher{
		writer: w,
		topic:  kcfg.Topic,
		log:    logger.GetLogger(),
	}, nil
}

// Publish writes one message per ranked entry, keyed by route and country so
// repeated runs for a route land on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, runID string, req models.SearchRequest, ranking models.Ranking) error {
	if len(ranking.Entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	messages := make([]kafka.Message, 0, len(ranking.Entries))
	for i, entry := range ranking.Entries {
		event := DealEvent{
			RunID:            runID,
			Origin:           req.Origin,
			Destination:      req.Destination,
			TravelDate:       req.DepartureDate,
			Rank:             i + 1,
			Country:          entry.Country,
			Price:            entry.Price.StringFixed(2),
			Currency:         ranking.Currency,
			OriginalPrice:    entry.OriginalAmount.StringFixed(2),
			OriginalCurrency: entry.OriginalCurrency,
			Airline:          entry.Airline,
			Stops:            entry.Stops,
			PublishedAt:      now,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal deal event: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(fmt.Sprintf("%s-%s-%s", req.Origin, req.Destination, entry.Country)),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to publish deals to kafka: %w", err)
	}

	p.log.WithComponent("writer").WithFields(logger.Fields{
		"topic":    p.topic,
		"messages": len(messages),
	}).Info("deals published to kafka")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
