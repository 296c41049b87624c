package sqlinline

const QSelectAuthTokenByBearer = `--sql 8567843a-0145-49f6-b854-4cfbaa7707b0
select
  t.id,
  t.customer,
  t.bearer_token,
  t.cookie_id,
  t.expires,
  t.ttl,
  t.last_checked,
  s.id,
  s.created,
  s.roles
from auth_tokens t
join session_users s on s.id = t.session_user_id
where t.customer = $1::int and t.bearer_token = $2::text
limit 1;
`

const QSelectAuthTokenByCookie = `--sql f416f791-29f6-4028-be69-6d3e61686c81
select
  t.id,
  t.customer,
  t.bearer_token,
  t.cookie_id,
  t.expires,
  t.ttl,
  t.last_checked,
  s.id,
  s.created,
  s.roles
from auth_tokens t
join session_users s on s.id = t.session_user_id
where t.customer = $1::int and t.cookie_id = $2::text
limit 1;
`

const QInsertSessionUser = `--sql b4f30572-d50a-43a3-a53a-3f99d8276825
insert into session_users(id, created, roles)
values ($1::text, $2::timestamptz, $3::jsonb);
`

const QInsertAuthToken = `--sql 366879fb-ddde-44e6-b6b9-92ed74c528fc
insert into auth_tokens(
  id,
  customer,
  bearer_token,
  cookie_id,
  expires,
  ttl,
  last_checked,
  session_user_id
) values (
  $1::text,
  $2::int,
  $3::text,
  $4::text,
  $5::timestamptz,
  $6::int,
  $7::timestamptz,
  $8::text
);
`

// Sliding expiry: touching a token pushes its expiry out by its ttl.
const QRefreshAuthToken = `--sql 8365f55e-41e5-44a0-8be0-e8651d2c2b9c
update auth_tokens
set expires = $2::timestamptz, last_checked = $3::timestamptz
where id = $1::text;
`
