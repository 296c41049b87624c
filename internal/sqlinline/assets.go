package sqlinline

const QSelectImageByID = `--sql acf99d22-3e58-494c-818f-169dea20a765
select
  customer,
  space,
  id,
  family,
  media_type,
  width,
  height,
  max_unauthorised,
  roles,
  not_for_delivery,
  batch,
  origin,
  string_1,
  string_2,
  string_3,
  number_1,
  number_2,
  number_3
from images
where customer = $1::int and space = $2::int and id = $3::text
limit 1;
`

// QSelectImagesBase is the projection query prefix; the repository appends
// filter and order clauses with positional placeholders continuing from $1.
const QSelectImagesBase = `--sql b6ed486e-2520-461e-9e78-e639f45c4c08
select
  customer,
  space,
  id,
  family,
  media_type,
  width,
  height,
  max_unauthorised,
  roles,
  not_for_delivery,
  batch,
  origin,
  string_1,
  string_2,
  string_3,
  number_1,
  number_2,
  number_3
from images`
