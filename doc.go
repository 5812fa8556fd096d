package recwire

// Package recwire provides:
//
// - Schema-driven typed records (declared field order, derived required-ness, defaults)
// - Constraint validation with fail-fast dotted-path errors (Convert/ConvertAll)
// - A fused JSON codec that checks types and constraints during the single parsing pass
// - Tagged unions dispatched on a discriminant field, tolerant of field order
// - Self-referential and mutually recursive schemas via registry references
//
// Design policy:
// - Keep only public APIs in the root package; put token plumbing under internal/.
// - Place token sources under source/, the schema file loader under schemafile/,
//   and the CBOR bridge under cbor/.
// - Registries are immutable after Compile; compiled schemas, decoders and
//   records are safe for concurrent readers.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  reg := recwire.NewRegistry()
//  user := reg.Register("User", recwire.Fields(
//      recwire.Field("user_id", recwire.UUID()),
//      recwire.Field("name", recwire.String(), recwire.MinLen(1)),
//      recwire.Field("age", recwire.Int(), recwire.Min(0), recwire.Max(150)),
//  ))
//  err := reg.Compile()
//
//  dec, err := recwire.NewDecoder(user.Type())
//  v, err := dec.Decode(data)
//
//  out, err := recwire.Marshal(v)
//
