package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/atotto/clipboard"

	"github.com/erpl-adt/erpl-adt/pkg/adt"
	"github.com/erpl-adt/erpl-adt/pkg/deploy"
	"github.com/erpl-adt/erpl-adt/pkg/lockedit"
	"github.com/erpl-adt/erpl-adt/pkg/router"
	"github.com/erpl-adt/erpl-adt/pkg/types"
)

func newFormatter(args router.CommandArgs) *router.Formatter {
	return router.NewFormatter(args.JsonMode(), args.Flag("no-color", "") == "true")
}

// maybeCopy writes value to the OS clipboard when --copy was given. A
// clipboard failure (headless host) is not worth failing the command over.
func maybeCopy(args router.CommandArgs, value string) {
	if args.Flag("copy", "") == "true" {
		_ = clipboard.WriteAll(value)
	}
}

// HandleSearchQuery implements `search query` (the group default).
func HandleSearchQuery(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing search pattern. Usage: erpl-adt search <pattern> [--type=CLAS] [--max=N]")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}

	opts := adt.SearchOptions{Query: args.Positional[0]}
	if v := args.Flag("max", ""); v != "" {
		opts.MaxResults, _ = strconv.Atoi(v)
	}
	opts.ObjectType = args.Flag("type", "")

	results, err := adt.SearchObjects(s, opts)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if out.JsonMode {
		items := make([]map[string]any, 0, len(results))
		for _, r := range results {
			items = append(items, map[string]any{
				"name": r.Name, "type": r.Type, "uri": r.Uri,
				"description": r.Description, "package": r.PackageName,
			})
		}
		out.PrintJson(items)
	} else {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			rows = append(rows, []string{r.Name, r.Type, r.PackageName, r.Description})
		}
		out.PrintTable([]string{"Name", "Type", "Package", "Description"}, rows)
	}
	return 0
}

// HandleObjectRead implements `object read` (the group default).
func HandleObjectRead(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing object URI. Usage: erpl-adt object read <uri>")
	}
	uri, uerr := types.NewObjectUri(args.Positional[0])
	if uerr != nil {
		return out.PrintValidationError("Invalid URI: " + uerr.Error())
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	obj, err := adt.GetObjectStructure(s, uri)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	maybeCopy(args, obj.Info.Uri)

	if out.JsonMode {
		includes := make([]map[string]any, 0, len(obj.Includes))
		for _, inc := range obj.Includes {
			includes = append(includes, map[string]any{
				"name": inc.Name, "type": inc.Type,
				"include_type": inc.IncludeType, "source_uri": inc.SourceUri,
			})
		}
		out.PrintJson(map[string]any{
			"name": obj.Info.Name, "type": obj.Info.Type, "uri": obj.Info.Uri,
			"description": obj.Info.Description, "source_uri": obj.Info.SourceUri,
			"version": obj.Info.Version, "responsible": obj.Info.Responsible,
			"changed_by": obj.Info.ChangedBy, "includes": includes,
		})
	} else {
		out.PrintLine(obj.Info.Name + " (" + obj.Info.Type + ")")
		out.PrintLine("  URI: " + obj.Info.Uri)
		out.PrintLine("  Description: " + obj.Info.Description)
		if len(obj.Includes) > 0 {
			out.PrintLine("  Includes:")
			for _, inc := range obj.Includes {
				out.PrintLine("    " + inc.IncludeType + ": " + inc.SourceUri)
			}
		}
	}
	return 0
}

// HandleObjectCreate implements `object create`.
func HandleObjectCreate(args router.CommandArgs) int {
	out := newFormatter(args)
	objType := args.Flag("type", "")
	name := args.Flag("name", "")
	pkg := args.Flag("package", "")
	if objType == "" || name == "" || pkg == "" {
		return out.PrintValidationError("Missing required flags. Usage: erpl-adt object create --type <type> --name <name> --package <pkg>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	uri, err := adt.CreateObject(s, adt.CreateObjectParams{
		ObjectType:      objType,
		Name:            name,
		PackageName:     pkg,
		Description:     args.Flag("description", ""),
		TransportNumber: args.Flag("transport", ""),
	})
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"uri": uri.String()})
	} else {
		out.PrintSuccess("Created: " + uri.String())
	}
	return 0
}

// HandleObjectDelete implements `object delete`: explicit-handle mode when
// --handle is given, auto-lock mode otherwise.
func HandleObjectDelete(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing object URI. Usage: erpl-adt object delete <uri>")
	}
	uri, uerr := types.NewObjectUri(args.Positional[0])
	if uerr != nil {
		return out.PrintValidationError("Invalid URI: " + uerr.Error())
	}
	transport := args.Flag("transport", "")

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}

	if handleStr := args.Flag("handle", ""); handleStr != "" {
		handle, herr := types.NewLockHandle(handleStr)
		if herr != nil {
			return out.PrintValidationError("Invalid handle: " + herr.Error())
		}
		if err := adt.DeleteObject(s, uri, handle, transport); err != nil {
			out.PrintError(err)
			return err.ExitCode()
		}
	} else {
		if err := adt.AutoLockDelete(s, uri, transport); err != nil {
			out.PrintError(err)
			return err.ExitCode()
		}
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"deleted": true, "uri": args.Positional[0]})
	} else {
		out.PrintSuccess("Deleted: " + args.Positional[0])
	}
	return 0
}

// HandleObjectLock implements `object lock`. With --session-file, the
// stateful session is persisted so a later `object unlock` invocation can
// finish the dance.
func HandleObjectLock(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing object URI. Usage: erpl-adt object lock <uri>")
	}
	uri, uerr := types.NewObjectUri(args.Positional[0])
	if uerr != nil {
		return out.PrintValidationError("Invalid URI: " + uerr.Error())
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	s.SetStateful(true)
	lock, err := lockedit.LockObject(s, uri)
	if err != nil {
		s.SetStateful(false)
		out.PrintError(err)
		return err.ExitCode()
	}
	maybeSaveSession(s, args)
	maybeCopy(args, lock.Handle.String())

	if out.JsonMode {
		out.PrintJson(map[string]any{
			"handle":           lock.Handle.String(),
			"transport_number": lock.CorrNr,
			"transport_owner":  lock.CorrUser,
			"transport_text":   lock.CorrText,
		})
	} else {
		out.PrintLine("Locked: " + args.Positional[0])
		out.PrintLine("  Handle: " + lock.Handle.String())
		if lock.CorrNr != "" {
			out.PrintLine("  Transport: " + lock.CorrNr)
		}
	}
	return 0
}

// HandleObjectUnlock implements `object unlock`. The session file, when
// given, is deleted after a successful unlock.
func HandleObjectUnlock(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing object URI. Usage: erpl-adt object unlock <uri>")
	}
	handleStr := args.Flag("handle", "")
	if handleStr == "" {
		return out.PrintValidationError("Missing --handle flag")
	}
	uri, uerr := types.NewObjectUri(args.Positional[0])
	if uerr != nil {
		return out.PrintValidationError("Invalid URI: " + uerr.Error())
	}
	handle, herr := types.NewLockHandle(handleStr)
	if herr != nil {
		return out.PrintValidationError("Invalid handle: " + herr.Error())
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	if err := lockedit.UnlockObject(s, uri, handle); err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	maybeDeleteSessionFile(args)

	if out.JsonMode {
		out.PrintJson(map[string]any{"unlocked": true, "uri": args.Positional[0]})
	} else {
		out.PrintSuccess("Unlocked: " + args.Positional[0])
	}
	return 0
}

// HandleSourceRead implements `source read` (the group default).
func HandleSourceRead(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing source URI. Usage: erpl-adt source read <uri>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	source, err := adt.ReadSource(s, args.Positional[0], args.Flag("version", "active"))
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"source": source})
	} else {
		// Raw source, no trailing formatting.
		_, _ = os.Stdout.WriteString(source)
	}
	return 0
}

// HandleSourceWrite implements `source write`: explicit-handle mode when
// --handle is given, auto-lock mode otherwise. The content comes from
// --file.
func HandleSourceWrite(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing source URI. Usage: erpl-adt source write <uri> --file <path>")
	}
	filePath := args.Flag("file", "")
	if filePath == "" {
		return out.PrintValidationError("Missing --file flag")
	}
	content, rerr := os.ReadFile(filePath)
	if rerr != nil {
		return out.PrintValidationError("Cannot open file: " + filePath)
	}
	sourceUri := args.Positional[0]
	transport := args.Flag("transport", "")

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}

	if handleStr := args.Flag("handle", ""); handleStr != "" {
		handle, herr := types.NewLockHandle(handleStr)
		if herr != nil {
			return out.PrintValidationError("Invalid handle: " + herr.Error())
		}
		if err := adt.WriteSource(s, sourceUri, string(content), handle, transport); err != nil {
			out.PrintError(err)
			return err.ExitCode()
		}
		maybeSaveSession(s, args)
	} else {
		if _, err := adt.AutoLockWrite(s, sourceUri, string(content), transport); err != nil {
			out.PrintError(err)
			return err.ExitCode()
		}
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"written": true, "uri": sourceUri})
	} else {
		out.PrintSuccess("Source written: " + sourceUri)
	}
	return 0
}

// HandleSourceCheck implements `source check`.
func HandleSourceCheck(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing source URI. Usage: erpl-adt source check <uri>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	messages, err := adt.CheckSyntax(s, args.Positional[0])
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		items := make([]map[string]any, 0, len(messages))
		for _, m := range messages {
			items = append(items, map[string]any{
				"type": m.Type, "text": m.Text, "uri": m.Uri,
				"line": m.Line, "offset": m.Offset,
			})
		}
		out.PrintJson(items)
	} else if len(messages) == 0 {
		out.PrintSuccess("No syntax errors")
	} else {
		rows := make([][]string, 0, len(messages))
		for _, m := range messages {
			rows = append(rows, []string{m.Type, strconv.Itoa(m.Line), m.Text})
		}
		out.PrintTable([]string{"Type", "Line", "Text"}, rows)
	}
	return 0
}

// HandleTestRun implements `test run` (the group default). A run with
// failures still exits 7 so CI pipelines see it.
func HandleTestRun(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing test URI. Usage: erpl-adt test run <uri>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	result, err := adt.RunTests(s, args.Positional[0])
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
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
			classes = append(classes, map[string]any{"name": c.Name, "uri": c.Uri, "methods": methods})
		}
		out.PrintJson(map[string]any{
			"total_methods": result.TotalMethods(),
			"total_failed":  result.TotalFailed(),
			"all_passed":    result.AllPassed(),
			"classes":       classes,
		})
	} else {
		out.PrintLine(fmt.Sprintf("Test results: %d methods, %d failed", result.TotalMethods(), result.TotalFailed()))
		for _, c := range result.Classes {
			for _, m := range c.Methods {
				status := "PASS"
				if !m.Passed() {
					status = "FAIL"
				}
				out.PrintLine("  [" + status + "] " + c.Name + "->" + m.Name)
				for _, a := range m.Alerts {
					out.PrintLine("    " + a.Severity + ": " + a.Title)
				}
			}
		}
	}

	if !result.AllPassed() {
		return 7
	}
	return 0
}

// HandleCheckRun implements `check run` (the group default). Error-priority
// findings exit 8.
func HandleCheckRun(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing object URI. Usage: erpl-adt check run <uri>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	result, err := adt.RunAtcCheck(s, args.Positional[0], args.Flag("variant", "DEFAULT"))
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		findings := make([]map[string]any, 0, len(result.Findings))
		for _, f := range result.Findings {
			findings = append(findings, map[string]any{
				"uri": f.Uri, "message": f.Message, "priority": f.Priority,
				"check_title": f.CheckTitle, "message_title": f.MessageTitle,
			})
		}
		out.PrintJson(map[string]any{
			"worklist_id":   result.WorklistId,
			"error_count":   result.ErrorCount(),
			"warning_count": result.WarningCount(),
			"findings":      findings,
		})
	} else {
		out.PrintLine(fmt.Sprintf("ATC Check: %d errors, %d warnings", result.ErrorCount(), result.WarningCount()))
		for _, f := range result.Findings {
			prio := "INFO"
			switch f.Priority {
			case 1:
				prio = "ERR"
			case 2:
				prio = "WARN"
			}
			out.PrintLine("  [" + prio + "] " + f.Message)
		}
	}

	if result.ErrorCount() > 0 {
		return 8
	}
	return 0
}

// HandleTransportList implements `transport list` (the group default).
func HandleTransportList(args router.CommandArgs) int {
	out := newFormatter(args)

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	transports, err := adt.ListTransports(s, args.Flag("user", "DEVELOPER"))
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	sort.Slice(transports, func(i, j int) bool { return transports[i].Number < transports[j].Number })

	if out.JsonMode {
		items := make([]map[string]any, 0, len(transports))
		for _, t := range transports {
			items = append(items, map[string]any{
				"number": t.Number, "description": t.Description,
				"owner": t.Owner, "status": t.Status, "target": t.Target,
			})
		}
		out.PrintJson(items)
	} else {
		rows := make([][]string, 0, len(transports))
		for _, t := range transports {
			rows = append(rows, []string{t.Number, t.Description, t.Owner, t.Status})
		}
		out.PrintTable([]string{"Number", "Description", "Owner", "Status"}, rows)
	}
	return 0
}

// HandleTransportCreate implements `transport create`.
func HandleTransportCreate(args router.CommandArgs) int {
	out := newFormatter(args)
	desc := args.Flag("desc", "")
	pkg := args.Flag("package", "")
	if desc == "" {
		return out.PrintValidationError("Missing --desc flag")
	}
	if pkg == "" {
		return out.PrintValidationError("Missing --package flag")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	number, err := adt.CreateTransport(s, desc, pkg)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"transport_number": number})
	} else {
		out.PrintSuccess("Created transport: " + number)
	}
	return 0
}

// HandleTransportRelease implements `transport release`.
func HandleTransportRelease(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing transport number. Usage: erpl-adt transport release <number>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	if err := adt.ReleaseTransport(s, args.Positional[0]); err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"released": true, "transport_number": args.Positional[0]})
	} else {
		out.PrintSuccess("Released transport: " + args.Positional[0])
	}
	return 0
}

// HandleDdicTable implements `ddic table` (the group default).
func HandleDdicTable(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing table name. Usage: erpl-adt ddic table <name>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	table, err := adt.GetTableDefinition(s, args.Positional[0])
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		fields := make([]map[string]any, 0, len(table.Fields))
		for _, f := range table.Fields {
			fields = append(fields, map[string]any{
				"name": f.Name, "type": f.Type,
				"description": f.Description, "key_field": f.KeyField,
			})
		}
		out.PrintJson(map[string]any{
			"name": table.Name, "description": table.Description,
			"delivery_class": table.DeliveryClass, "fields": fields,
		})
	} else {
		out.PrintLine(table.Name + " - " + table.Description)
		rows := make([][]string, 0, len(table.Fields))
		for _, f := range table.Fields {
			key := ""
			if f.KeyField {
				key = "Y"
			}
			rows = append(rows, []string{f.Name, f.Type, key, f.Description})
		}
		out.PrintTable([]string{"Field", "Type", "Key", "Description"}, rows)
	}
	return 0
}

// HandleDdicCds implements `ddic cds`.
func HandleDdicCds(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing CDS name. Usage: erpl-adt ddic cds <name>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	source, err := adt.GetCdsSource(s, args.Positional[0])
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"source": source})
	} else {
		_, _ = os.Stdout.WriteString(source)
	}
	return 0
}

// HandlePackageList implements `package list` (the group default).
func HandlePackageList(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing package name. Usage: erpl-adt package list <name>")
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	entries, err := adt.ListPackageContents(s, args.Positional[0])
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ObjectName < entries[j].ObjectName })

	if out.JsonMode {
		items := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			items = append(items, map[string]any{
				"object_type": e.ObjectType, "object_name": e.ObjectName,
				"object_uri": e.ObjectUri, "description": e.Description,
			})
		}
		out.PrintJson(items)
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.ObjectType, e.ObjectName, e.Description})
		}
		out.PrintTable([]string{"Type", "Name", "Description"}, rows)
	}
	return 0
}

// HandlePackageTree implements `package tree`.
func HandlePackageTree(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing package name. Usage: erpl-adt package tree <name> [--type=CLAS]")
	}

	opts := adt.PackageTreeOptions{RootPackage: args.Positional[0], TypeFilter: args.Flag("type", "")}
	if v := args.Flag("max-depth", ""); v != "" {
		opts.MaxDepth, _ = strconv.Atoi(v)
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	entries, err := adt.ListPackageTree(s, opts)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ObjectName < entries[j].ObjectName })

	if out.JsonMode {
		items := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			items = append(items, map[string]any{
				"object_type": e.ObjectType, "object_name": e.ObjectName,
				"object_uri": e.ObjectUri, "description": e.Description,
				"package": e.PackageName,
			})
		}
		out.PrintJson(items)
	} else {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.ObjectType, e.ObjectName, e.PackageName, e.Description})
		}
		out.PrintTable([]string{"Type", "Name", "Package", "Description"}, rows)
	}
	return 0
}

// HandlePackageExists implements `package exists`.
func HandlePackageExists(args router.CommandArgs) int {
	out := newFormatter(args)
	if len(args.Positional) == 0 {
		return out.PrintValidationError("Missing package name. Usage: erpl-adt package exists <name>")
	}
	pkg, perr := types.NewPackageName(args.Positional[0])
	if perr != nil {
		return out.PrintValidationError("Invalid package name: " + perr.Error())
	}

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	exists, err := adt.PackageExists(s, pkg)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		out.PrintJson(map[string]any{"exists": exists, "package": args.Positional[0]})
	} else if exists {
		out.PrintSuccess("Package exists: " + args.Positional[0])
	} else {
		out.PrintLine("Package not found: " + args.Positional[0])
	}
	return 0
}

// HandleDiscoverServices implements `discover services` (the group default).
func HandleDiscoverServices(args router.CommandArgs) int {
	out := newFormatter(args)

	s, serr := NewSession(args)
	if serr != nil {
		out.PrintError(serr)
		return serr.ExitCode()
	}
	disc, err := deploy.Discover(s)
	if err != nil {
		out.PrintError(err)
		return err.ExitCode()
	}

	if out.JsonMode {
		services := make([]map[string]any, 0, len(disc.Services))
		for _, svc := range disc.Services {
			services = append(services, map[string]any{
				"title": svc.Title, "href": svc.Href, "type": svc.Type,
			})
		}
		out.PrintJson(map[string]any{
			"services":       services,
			"has_abapgit":    disc.HasAbapGitSupport,
			"has_packages":   disc.HasPackagesSupport,
			"has_activation": disc.HasActivationSupport,
		})
	} else {
		out.PrintLine("ADT Services:")
		for _, svc := range disc.Services {
			out.PrintLine("  " + svc.Title + " -> " + svc.Href)
		}
		out.PrintLine("")
		out.PrintLine("Capabilities:")
		out.PrintLine("  abapGit: " + yesNo(disc.HasAbapGitSupport))
		out.PrintLine("  Packages: " + yesNo(disc.HasPackagesSupport))
		out.PrintLine("  Activation: " + yesNo(disc.HasActivationSupport))
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
