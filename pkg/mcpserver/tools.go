package mcpserver

import (
	"github.com/erpl-adt/erpl-adt/pkg/adt"
	"github.com/erpl-adt/erpl-adt/pkg/deploy"
	"github.com/erpl-adt/erpl-adt/pkg/lockedit"
	"github.com/erpl-adt/erpl-adt/pkg/session"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

// RegisterAdtTools registers the fixed ADT tool set over one shared
// session. Tool names and input schemas match the published surface; the
// handlers reuse the same core functions the CLI dispatches to.
func RegisterAdtTools(registry *Registry, s session.Session) {
	// Read-only tools.

	registry.Register(
		"adt_search",
		"Search the ABAP repository for objects by name pattern. "+
			"Use wildcards (*). Returns object URIs needed for all other operations.",
		makeSchema(map[string]any{
			"query":       stringProp("Search pattern with wildcards (e.g., ZCL_*)"),
			"max_results": intProp("Maximum number of results (default: 100)"),
			"object_type": stringProp("Filter by type: CLAS, PROG, TABL, INTF, FUGR"),
		}, []string{"query"}),
		func(params map[string]any) ToolResult {
			query, perr := requireString(params, "query")
			if perr != nil {
				return *perr
			}
			results, err := adt.SearchObjects(s, adt.SearchOptions{
				Query:      query,
				MaxResults: optInt(params, "max_results", 100),
				ObjectType: optString(params, "object_type", ""),
			})
			if err != nil {
				return ErrorResult(err)
			}
			out := make([]map[string]any, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]any{
					"name": r.Name, "type": r.Type, "uri": r.Uri,
					"description": r.Description, "package": r.PackageName,
				})
			}
			return OkResult(out)
		})

	registry.Register(
		"adt_read_object",
		"Read metadata and structure of an ABAP object. "+
			"Returns name, type, source URIs, includes, and version info.",
		makeSchema(map[string]any{
			"uri": stringProp("Object URI (e.g., /sap/bc/adt/oo/classes/zcl_example)"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uriStr, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			uri, uerr := types.NewObjectUri(uriStr)
			if uerr != nil {
				return ParamError("Invalid URI: " + uerr.Error())
			}
			obj, err := adt.GetObjectStructure(s, uri)
			if err != nil {
				return ErrorResult(err)
			}
			includes := make([]map[string]any, 0, len(obj.Includes))
			for _, inc := range obj.Includes {
				includes = append(includes, map[string]any{
					"name": inc.Name, "type": inc.Type,
					"include_type": inc.IncludeType, "source_uri": inc.SourceUri,
				})
			}
			return OkResult(map[string]any{
				"name": obj.Info.Name, "type": obj.Info.Type, "uri": obj.Info.Uri,
				"description": obj.Info.Description, "source_uri": obj.Info.SourceUri,
				"version": obj.Info.Version, "responsible": obj.Info.Responsible,
				"changed_by": obj.Info.ChangedBy, "includes": includes,
			})
		})

	registry.Register(
		"adt_read_source",
		"Read the source code of an ABAP object. Returns plain text source.",
		makeSchema(map[string]any{
			"uri":     stringProp("Source URI (e.g., /sap/bc/adt/oo/classes/zcl_test/source/main)"),
			"version": stringProp("Version: 'active' (default) or 'inactive'"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uri, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			source, err := adt.ReadSource(s, uri, optString(params, "version", "active"))
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"source": source})
		})

	registry.Register(
		"adt_check_syntax",
		"Run a syntax check on an ABAP source object. "+
			"Returns errors and warnings with line numbers.",
		makeSchema(map[string]any{
			"uri": stringProp("Source URI to check"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uri, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			messages, err := adt.CheckSyntax(s, uri)
			if err != nil {
				return ErrorResult(err)
			}
			out := make([]map[string]any, 0, len(messages))
			for _, m := range messages {
				out = append(out, map[string]any{
					"type": m.Type, "text": m.Text, "uri": m.Uri,
					"line": m.Line, "offset": m.Offset,
				})
			}
			return OkResult(out)
		})

	registry.Register(
		"adt_run_tests",
		"Run ABAP Unit tests for an object or package. "+
			"Returns structured pass/fail results with assertion messages. "+
			"The primary feedback loop for code changes.",
		makeSchema(map[string]any{
			"uri": stringProp("Object or package URI"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uri, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			result, err := adt.RunTests(s, uri)
			if err != nil {
				return ErrorResult(err)
			}
			classes := make([]map[string]any, 0, len(result.Classes))
			for _, c := range result.Classes {
				methods := make([]map[string]any, 0, len(c.Methods))
				for _, m := range c.Methods {
					alerts := make([]map[string]any, 0, len(m.Alerts))
					for _, a := range m.Alerts {
						alerts = append(alerts, map[string]any{
							"kind": a.Kind, "severity": a.Severity,
							"title": a.Title, "detail": a.Detail,
						})
					}
					methods = append(methods, map[string]any{
						"name": m.Name, "execution_time_ms": m.ExecutionTimeMs,
						"passed": m.Passed(), "alerts": alerts,
					})
				}
				classes = append(classes, map[string]any{
					"name": c.Name, "uri": c.Uri, "methods": methods,
				})
			}
			return OkResult(map[string]any{
				"total_methods": result.TotalMethods(),
				"total_failed":  result.TotalFailed(),
				"all_passed":    result.AllPassed(),
				"classes":       classes,
			})
		})

	registry.Register(
		"adt_run_atc",
		"Run ABAP Test Cockpit quality checks. "+
			"Returns findings with severity and line numbers.",
		makeSchema(map[string]any{
			"uri":           stringProp("Object or package URI"),
			"check_variant": stringProp("ATC check variant (default: DEFAULT)"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uri, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			result, err := adt.RunAtcCheck(s, uri, optString(params, "check_variant", "DEFAULT"))
			if err != nil {
				return ErrorResult(err)
			}
			findings := make([]map[string]any, 0, len(result.Findings))
			for _, f := range result.Findings {
				findings = append(findings, map[string]any{
					"uri": f.Uri, "message": f.Message, "priority": f.Priority,
					"check_title": f.CheckTitle, "message_title": f.MessageTitle,
				})
			}
			return OkResult(map[string]any{
				"worklist_id":   result.WorklistId,
				"error_count":   result.ErrorCount(),
				"warning_count": result.WarningCount(),
				"findings":      findings,
			})
		})

	registry.Register(
		"adt_list_transports",
		"List transport requests for a user. "+
			"Returns transport numbers, descriptions, and status.",
		makeSchema(map[string]any{
			"user": stringProp("SAP username (default: DEVELOPER)"),
		}, nil),
		func(params map[string]any) ToolResult {
			transports, err := adt.ListTransports(s, optString(params, "user", "DEVELOPER"))
			if err != nil {
				return ErrorResult(err)
			}
			out := make([]map[string]any, 0, len(transports))
			for _, t := range transports {
				out = append(out, map[string]any{
					"number": t.Number, "description": t.Description,
					"owner": t.Owner, "status": t.Status, "target": t.Target,
				})
			}
			return OkResult(out)
		})

	registry.Register(
		"adt_read_table",
		"Get a database table definition including fields, types, and key info.",
		makeSchema(map[string]any{
			"table_name": stringProp("Table name (e.g., SFLIGHT)"),
		}, []string{"table_name"}),
		func(params map[string]any) ToolResult {
			name, perr := requireString(params, "table_name")
			if perr != nil {
				return *perr
			}
			table, err := adt.GetTableDefinition(s, name)
			if err != nil {
				return ErrorResult(err)
			}
			fields := make([]map[string]any, 0, len(table.Fields))
			for _, f := range table.Fields {
				fields = append(fields, map[string]any{
					"name": f.Name, "type": f.Type,
					"description": f.Description, "key_field": f.KeyField,
				})
			}
			return OkResult(map[string]any{
				"name": table.Name, "description": table.Description,
				"delivery_class": table.DeliveryClass, "fields": fields,
			})
		})

	registry.Register(
		"adt_read_cds",
		"Read the source code of a CDS view definition.",
		makeSchema(map[string]any{
			"cds_name": stringProp("CDS view name"),
		}, []string{"cds_name"}),
		func(params map[string]any) ToolResult {
			name, perr := requireString(params, "cds_name")
			if perr != nil {
				return *perr
			}
			source, err := adt.GetCdsSource(s, name)
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"source": source})
		})

	registry.Register(
		"adt_list_package",
		"List objects inside a package (non-recursive, one level).",
		makeSchema(map[string]any{
			"package_name": stringProp("Package name (e.g., ZTEST)"),
		}, []string{"package_name"}),
		func(params map[string]any) ToolResult {
			name, perr := requireString(params, "package_name")
			if perr != nil {
				return *perr
			}
			entries, err := adt.ListPackageContents(s, name)
			if err != nil {
				return ErrorResult(err)
			}
			out := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				out = append(out, map[string]any{
					"object_type": e.ObjectType, "object_name": e.ObjectName,
					"object_uri": e.ObjectUri, "description": e.Description,
				})
			}
			return OkResult(out)
		})

	registry.Register(
		"adt_package_tree",
		"Recursively list all objects in a package hierarchy. "+
			"Use this for exhaustive enumeration when search maxResults is not sufficient.",
		makeSchema(map[string]any{
			"root_package": stringProp("Root package name"),
			"type_filter":  stringProp("Filter by object type: CLAS, PROG, TABL"),
			"max_depth":    intProp("Maximum recursion depth (default: 50)"),
		}, []string{"root_package"}),
		func(params map[string]any) ToolResult {
			root, perr := requireString(params, "root_package")
			if perr != nil {
				return *perr
			}
			entries, err := adt.ListPackageTree(s, adt.PackageTreeOptions{
				RootPackage: root,
				TypeFilter:  optString(params, "type_filter", ""),
				MaxDepth:    optInt(params, "max_depth", 50),
			})
			if err != nil {
				return ErrorResult(err)
			}
			out := make([]map[string]any, 0, len(entries))
			for _, e := range entries {
				out = append(out, map[string]any{
					"object_type": e.ObjectType, "object_name": e.ObjectName,
					"object_uri": e.ObjectUri, "description": e.Description,
					"package": e.PackageName,
				})
			}
			return OkResult(out)
		})

	registry.Register(
		"adt_package_exists",
		"Check if a package exists in the ABAP system.",
		makeSchema(map[string]any{
			"package_name": stringProp("Package name (e.g., ZTEST)"),
		}, []string{"package_name"}),
		func(params map[string]any) ToolResult {
			name, perr := requireString(params, "package_name")
			if perr != nil {
				return *perr
			}
			pkg, verr := types.NewPackageName(name)
			if verr != nil {
				return ParamError("Invalid package name: " + verr.Error())
			}
			exists, err := adt.PackageExists(s, pkg)
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"exists": exists, "package": name})
		})

	registry.Register(
		"adt_discover",
		"Discover available ADT services and capabilities. "+
			"Returns service list and feature flags (abapGit, packages, activation).",
		makeSchema(map[string]any{}, nil),
		func(map[string]any) ToolResult {
			disc, err := deploy.Discover(s)
			if err != nil {
				return ErrorResult(err)
			}
			services := make([]map[string]any, 0, len(disc.Services))
			for _, svc := range disc.Services {
				services = append(services, map[string]any{
					"title": svc.Title, "href": svc.Href, "type": svc.Type,
				})
			}
			return OkResult(map[string]any{
				"services":       services,
				"has_abapgit":    disc.HasAbapGitSupport,
				"has_packages":   disc.HasPackagesSupport,
				"has_activation": disc.HasActivationSupport,
			})
		})

	// Mutating tools.

	registry.Register(
		"adt_lock",
		"Lock an ABAP object for editing. "+
			"Returns a lock handle. The session becomes stateful. "+
			"Call adt_unlock when done.",
		makeSchema(map[string]any{
			"uri": stringProp("Object URI to lock"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uriStr, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			uri, uerr := types.NewObjectUri(uriStr)
			if uerr != nil {
				return ParamError("Invalid URI: " + uerr.Error())
			}
			s.SetStateful(true)
			lock, err := lockedit.LockObject(s, uri)
			if err != nil {
				s.SetStateful(false)
				return ErrorResult(err)
			}
			return OkResult(map[string]any{
				"handle":           lock.Handle.String(),
				"transport_number": lock.CorrNr,
				"transport_owner":  lock.CorrUser,
				"transport_text":   lock.CorrText,
			})
		})

	registry.Register(
		"adt_unlock",
		"Unlock a previously locked ABAP object.",
		makeSchema(map[string]any{
			"uri":         stringProp("Object URI to unlock"),
			"lock_handle": stringProp("Lock handle from adt_lock"),
		}, []string{"uri", "lock_handle"}),
		func(params map[string]any) ToolResult {
			uriStr, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			handleStr, perr := requireString(params, "lock_handle")
			if perr != nil {
				return *perr
			}
			uri, uerr := types.NewObjectUri(uriStr)
			if uerr != nil {
				return ParamError("Invalid URI: " + uerr.Error())
			}
			handle, herr := types.NewLockHandle(handleStr)
			if herr != nil {
				return ParamError("Invalid handle: " + herr.Error())
			}
			err := lockedit.UnlockObject(s, uri, handle)
			s.SetStateful(false)
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"unlocked": true})
		})

	registry.Register(
		"adt_write_source",
		"Write source code to an ABAP object. "+
			"Automatically handles lock/unlock cycle unless lock_handle is provided. "+
			"Provide complete source, not a diff.",
		makeSchema(map[string]any{
			"uri":         stringProp("Source URI (e.g., /sap/bc/adt/oo/classes/zcl_test/source/main)"),
			"source":      stringProp("Complete ABAP source code to write"),
			"lock_handle": stringProp("Lock handle (skips auto-lock if provided)"),
			"transport":   stringProp("Transport request number"),
		}, []string{"uri", "source"}),
		func(params map[string]any) ToolResult {
			uri, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			source, perr := requireString(params, "source")
			if perr != nil {
				return *perr
			}
			transport := optString(params, "transport", "")
			handleStr := optString(params, "lock_handle", "")

			if handleStr != "" {
				handle, herr := types.NewLockHandle(handleStr)
				if herr != nil {
					return ParamError("Invalid lock_handle: " + herr.Error())
				}
				if err := adt.WriteSource(s, uri, source, handle, transport); err != nil {
					return ErrorResult(err)
				}
			} else {
				if _, err := adt.AutoLockWrite(s, uri, source, transport); err != nil {
					return ErrorResult(err)
				}
			}
			return OkResult(map[string]any{"written": true, "uri": uri})
		})

	registry.Register(
		"adt_create_object",
		"Create a new ABAP object (class, program, etc.).",
		makeSchema(map[string]any{
			"object_type":  stringProp("Object type (e.g., CLAS/OC, PROG/P)"),
			"name":         stringProp("Object name (e.g., ZCL_MY_CLASS)"),
			"package_name": stringProp("Target package"),
			"description":  stringProp("Object description"),
			"transport":    stringProp("Transport request number"),
		}, []string{"object_type", "name", "package_name"}),
		func(params map[string]any) ToolResult {
			objType, perr := requireString(params, "object_type")
			if perr != nil {
				return *perr
			}
			name, perr := requireString(params, "name")
			if perr != nil {
				return *perr
			}
			pkg, perr := requireString(params, "package_name")
			if perr != nil {
				return *perr
			}
			uri, err := adt.CreateObject(s, adt.CreateObjectParams{
				ObjectType:      objType,
				Name:            name,
				PackageName:     pkg,
				Description:     optString(params, "description", ""),
				TransportNumber: optString(params, "transport", ""),
			})
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"uri": uri.String()})
		})

	registry.Register(
		"adt_delete_object",
		"Delete an ABAP object. "+
			"Automatically handles lock/unlock unless lock_handle is provided.",
		makeSchema(map[string]any{
			"uri":         stringProp("Object URI to delete"),
			"lock_handle": stringProp("Lock handle (skips auto-lock if provided)"),
			"transport":   stringProp("Transport request number"),
		}, []string{"uri"}),
		func(params map[string]any) ToolResult {
			uriStr, perr := requireString(params, "uri")
			if perr != nil {
				return *perr
			}
			uri, uerr := types.NewObjectUri(uriStr)
			if uerr != nil {
				return ParamError("Invalid URI: " + uerr.Error())
			}
			transport := optString(params, "transport", "")
			handleStr := optString(params, "lock_handle", "")

			if handleStr != "" {
				handle, herr := types.NewLockHandle(handleStr)
				if herr != nil {
					return ParamError("Invalid lock_handle: " + herr.Error())
				}
				if err := adt.DeleteObject(s, uri, handle, transport); err != nil {
					return ErrorResult(err)
				}
			} else {
				if err := adt.AutoLockDelete(s, uri, transport); err != nil {
					return ErrorResult(err)
				}
			}
			return OkResult(map[string]any{"deleted": true, "uri": uriStr})
		})

	registry.Register(
		"adt_create_transport",
		"Create a new transport request.",
		makeSchema(map[string]any{
			"description":    stringProp("Transport description"),
			"target_package": stringProp("Target package"),
		}, []string{"description", "target_package"}),
		func(params map[string]any) ToolResult {
			desc, perr := requireString(params, "description")
			if perr != nil {
				return *perr
			}
			pkg, perr := requireString(params, "target_package")
			if perr != nil {
				return *perr
			}
			number, err := adt.CreateTransport(s, desc, pkg)
			if err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"transport_number": number})
		})

	registry.Register(
		"adt_release_transport",
		"Release a transport request for import.",
		makeSchema(map[string]any{
			"transport_number": stringProp("Transport number (e.g., NPLK900001)"),
		}, []string{"transport_number"}),
		func(params map[string]any) ToolResult {
			number, perr := requireString(params, "transport_number")
			if perr != nil {
				return *perr
			}
			if err := adt.ReleaseTransport(s, number); err != nil {
				return ErrorResult(err)
			}
			return OkResult(map[string]any{"released": true, "transport_number": number})
		})
}
