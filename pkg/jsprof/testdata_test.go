package jsprof

// cpuPayload is a CPU profile of main (id 2) calling foo (id 3), sampled as
// main, foo, main at 0, 10 and 20 microseconds.
const cpuPayload = `{
  "head": {"id": 1, "functionName": "(root)", "hitCount": 0, "children": [
    {"id": 2, "functionName": "main", "url": "app.js", "lineNumber": 1, "hitCount": 2, "children": [
      {"id": 3, "functionName": "foo", "url": "app.js", "lineNumber": 10, "hitCount": 1, "children": []}
    ]}
  ]},
  "startTime": 0,
  "endTime": 1,
  "samples": [2, 3, 2],
  "timestamps": [0, 10, 20]
}`

// allocationPayload is an allocation profile of bar allocating when called from both
// main and foo.
const allocationPayload = `{
  "strings": ["", "main", "foo", "bar", "app.js"],
  "trace_function_infos": [1, 1, 4, 2, 2, 4, 3, 3, 4],
  "trace_tree": [0, 0, 0, 0, [
    1, 1, 1, 10, [
      2, 2, 2, 20, [3, 3, 3, 30, []],
      4, 3, 4, 40, []
    ]
  ]]
}`
