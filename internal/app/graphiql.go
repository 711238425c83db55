package app

// graphiqlPage is served in place of the teacher's embedded asset file,
// which is absent from the copied tree (_examples/hanpama-protograph's
// internal/server package references a package-level graphiqlPage value
// with no defining source file). A self-contained page avoids depending on
// a missing go:embed asset while preserving the same behavior: it posts to
// the same endpoint the browser loaded it from.
const graphiqlPage = `<!DOCTYPE html>
<html>
<head>
  <title>GraphiQL</title>
  <style>html, body, #graphiql { height: 100%; margin: 0; }</style>
  <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
</head>
<body>
  <div id="graphiql">Loading GraphiQL...</div>
  <script src="https://unpkg.com/graphiql/graphiql.min.js" crossorigin></script>
  <script>
    function fetcher(params) {
      return fetch(window.location.pathname, {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify(params),
      }).then(function (r) { return r.json(); });
    }
    ReactDOM.render(
      React.createElement(GraphiQL, { fetcher: fetcher }),
      document.getElementById('graphiql')
    );
  </script>
</body>
</html>
`
