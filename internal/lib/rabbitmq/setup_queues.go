package rabbitmq

// QueueConfig очередь и ключ маршрутизации, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// ChangeQueues очереди, получающие события изменения подписки.
func ChangeQueues(routingKey string) []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscription.changes", RoutingKey: routingKey},
	}
}
