package rmq

const (
	traceName = "rmq"

	exchangeKind       = "topic"
	exchangeDurable    = true
	exchangeAutoDelete = false
	exchangeInternal   = false
	exchangeNoWait     = false

	publishMandatory = false
	publishImmediate = false

	routingKeySucceeded = "conversion.succeeded"
	routingKeyFailed    = "conversion.failed"
)
