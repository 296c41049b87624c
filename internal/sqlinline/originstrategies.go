package sqlinline

const QSelectOriginStrategiesForCustomer = `--sql eb1a8ed0-3159-4c42-90f0-ff2adb130a1b
select id, customer, regex, strategy, credentials, "order"
from customer_origin_strategies
where customer = $1::int
order by "order" asc, id asc;
`
