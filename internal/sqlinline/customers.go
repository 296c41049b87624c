package sqlinline

const QSelectCustomerByID = `--sql 1067ec30-7145-4bc4-8e80-c62a2a967a82
select id, name, display_name
from customers
where id = $1::int
limit 1;
`

const QSelectCustomerByName = `--sql 6ef3fbe0-b953-449b-bd3b-1d6a9f58c83b
select id, name, display_name
from customers
where name = $1::text
limit 1;
`
