/*
Package errors provides semantic error types for the STI store.

The core raises a single error kind while mapping rows to entities:

	var ErrUnknownDiscriminator = errors.New("unknown discriminator")

It is returned when a row's discriminator column is missing or holds a value
that is not registered for the base type. The typed form carries both the
offending value and the base type identifier:

	entity, err := repo.Hydrate(row)
	if errors.IsUnknownDiscriminator(err) {
	    var ude *errors.UnknownDiscriminatorError
	    stderrors.As(err, &ude)
	    log.Printf("bad row for %s: %v", ude.BaseType, ude.Value)
	}

The remaining errors are reported by the storage engines:

	ErrNotFound        // Find on a missing key, update of a missing row
	ErrAlreadyExists   // insert of a duplicate key
	ErrInvalidInput    // missing key, bad configuration
	ErrConditionFailed // conditional write rejected
	ErrNoIndexMap      // DynamoDB engine without a registered index map

All error types implement Is, so errors.Is works through fmt.Errorf("%w")
wrapping.
*/
package errors
