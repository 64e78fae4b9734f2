/*
Package processor turns a YAML schema document into ready repositories.

A document lists base types. Each entry carries the table schema, the
resolution strategy and its data, an optional index map for key-value
engines and optional UI actions:

	types:
	  - morph: Epiphyte\Widget
	    table: widgets
	    discriminator: type
	    softDelete: true
	    timestamps: true
	    strategy: map
	    inheritanceMap:
	      new: Epiphyte\WidgetNew
	      active: Epiphyte\WidgetActive
	    indexMap:
	      PK: "WIDGET#{id}"
	      SK: "WIDGET#{id}"
	    actions:
	      admin:
	        - name: edit
	          action: widgets.edit
	          order: 10
	          concise: true
	  - morph: User
	    table: users
	    discriminator: state
	    strategy: convention
	    baseTypes: [suspended, banned]

Build resolves type names against a registry.Catalog populated by the
application, registers index maps and returns a Bundle holding an
sti.Manager and the action sets. Describe and Run work on the document
alone and back the stictl command.
*/
package processor
