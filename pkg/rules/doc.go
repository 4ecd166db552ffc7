// Package rules runs declarative rules against a data.Container.
//
// A rule file is YAML:
//
//	rules:
//	  - name: publish
//	    condition: input.status == "draft"
//	    actions:
//	      - action: data_set
//	        path: status
//	        value: published
//	      - action: list_add
//	        path: log
//	        value: "published [title]"
//	      - action: data_save
//
// Conditions are Rego rule bodies evaluated with the container's ToArray
// form as input; a rule without a condition always runs. Actions run in
// order and stop at the first failure. String arguments may reference
// other values with [path] placeholders.
//
// Script actions run Starlark. The container is available as the global
// "data", and every exported global the script defines is stored back into
// the container under its own name.
package rules
