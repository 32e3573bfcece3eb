// Package mq contains constructs for consuming a broker subscription
// in pull mode.
//
// Consumer is the consumer worker. It reads batches from the subscription
// through a Client, feeds every message to the MessageHandler and settles the
// message according to the handler's Outcome: Completed messages are
// acknowledged, Retryable ones are returned to the subscription until the
// broker's delivery count reaches the retry limit, Poisoned ones are
// dead-lettered. The number of messages being processed never exceeds the
// configured maximum, across batches.
//
// Client implementations for concrete brokers live under service/broker.
// Package mqtest provides an in-memory Client for tests.
package mq
