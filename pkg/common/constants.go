package common

const (
	RedisStreamSchedulerTaskExecution = "schedule.task.execution"

	RedisStreamGroup    = "executor-group"
	RedisStreamConsumer = "executor-consumer"

	// RedisPayloadField is the stream message field carrying the JSON task.
	RedisPayloadField = "payload"

	DefaultTimeZone = "Asia/Kolkata"
	DefaultExchange = "NSE"

	// NSESymbolSuffix is appended to symbols when querying market data.
	NSESymbolSuffix = ".NS"
)
