package mezport

import (
	"time"

	"github.com/valyala/fastjson"
)

// parserPool reuses fastjson parsers across fetches.
var parserPool fastjson.ParserPool

// normalizeResponse converts a 200 response body into a FetchResult. The
// export API wraps lines in a JSON object: {"lines": [...], "pagination_id":
// "..."}. A missing "lines" field means an empty page; anything that is not
// the expected envelope is a MalformedResponse failure.
func normalizeResponse(body []byte, requested int) (*FetchResult, *FetchError) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, malformed("response body is not valid JSON", body, err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, malformed("response body is not a JSON object", body, nil)
	}

	var logs []Record
	if linesVal := v.Get("lines"); linesVal != nil && linesVal.Type() != fastjson.TypeNull {
		arr, err := linesVal.Array()
		if err != nil {
			return nil, malformed(`"lines" is not an array`, body, err)
		}
		logs = make([]Record, 0, len(arr))
		for _, lineVal := range arr {
			obj, err := lineVal.Object()
			if err != nil {
				return nil, malformed("log line is not an object", body, err)
			}
			logs = append(logs, recordFromObject(obj))
		}
	}

	return &FetchResult{
		Logs:         logs,
		PaginationID: string(v.GetStringBytes("pagination_id")),
		HasMore:      len(logs) == requested,
	}, nil
}

// recordFromObject converts a parsed log line into a Record. Values keep
// their JSON types; nested objects and arrays convert recursively.
func recordFromObject(obj *fastjson.Object) Record {
	rec := make(Record, obj.Len())
	obj.Visit(func(key []byte, v *fastjson.Value) {
		rec[string(key)] = jsonValue(v)
	})
	return rec
}

func jsonValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeObject:
		obj, _ := v.Object()
		return map[string]any(recordFromObject(obj))
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, jsonValue(item))
		}
		return out
	default:
		return nil
	}
}

func malformed(message string, body []byte, cause error) *FetchError {
	return &FetchError{
		Type:        ErrorTypeMalformed,
		Message:     message,
		BodyExcerpt: excerpt(body),
		Cause:       cause,
		Timestamp:   time.Now(),
	}
}
