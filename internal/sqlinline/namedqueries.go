package sqlinline

// A customer-specific query shadows a global query with the same name, hence
// the order by global asc.
const QSelectNamedQueryByName = `--sql 816d2740-2dfa-4876-a202-8ed07070704d
select id, customer, global, name, template
from named_queries
where name = $1::text and (customer = $2::int or global)
order by global asc
limit 1;
`
